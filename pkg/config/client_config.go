package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultAdminPort     = "7070"
	defaultClientTimeout = 30 * time.Second
)

// ClientConfig is the CLI's list of sites it administers
type ClientConfig struct {
	Sites    []SiteEntry     `json:"sites"`
	Defaults DefaultSettings `json:"defaults"`

	path string
}

// SiteEntry is one administered site
type SiteEntry struct {
	Name         string `json:"name"`
	AdminAddress string `json:"admin_address"`
	Token        string `json:"token,omitempty"`
}

type DefaultSettings struct {
	PreferredSite string `json:"preferred_site,omitempty"`
	Timeout       string `json:"timeout,omitempty"`
	OutputFormat  string `json:"output_format,omitempty"`
}

// ConnectionConfig is what the CLI needs to dial a site
type ConnectionConfig struct {
	Address string
	Token   string
	Timeout time.Duration
}

// GetConfigDir returns the ringlink CLI configuration directory
func GetConfigDir() string {
	if dir := os.Getenv("RINGLINK_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ringlink")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ringlink"
	}
	return filepath.Join(home, ".ringlink")
}

func GetClientConfigPath() string {
	return filepath.Join(GetConfigDir(), "client.json")
}

// LoadClientConfig reads the CLI config from path, or the default location
// when path is empty. A missing file yields an empty config.
func LoadClientConfig(path string) (*ClientConfig, error) {
	if path == "" {
		path = GetClientConfigPath()
	}
	cfg := &ClientConfig{path: path, Defaults: DefaultSettings{OutputFormat: "styled"}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	return cfg, nil
}

// Save writes the config with owner-only permissions since it holds tokens
func (c *ClientConfig) Save() error {
	if c.path == "" {
		c.path = GetClientConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal client config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write client config: %w", err)
	}
	return nil
}

func (c *ClientConfig) GetSite(name string) (*SiteEntry, error) {
	for i := range c.Sites {
		if c.Sites[i].Name == name {
			return &c.Sites[i], nil
		}
	}
	return nil, fmt.Errorf("site %q not found", name)
}

// AddSite adds or replaces a site. The first site becomes the preferred one.
func (c *ClientConfig) AddSite(site SiteEntry) error {
	if site.Name == "" {
		return errors.New("site name is required")
	}
	if site.AdminAddress == "" {
		return errors.New("admin address is required")
	}
	site.AdminAddress = normalizeAddress(site.AdminAddress)

	replaced := false
	for i := range c.Sites {
		if c.Sites[i].Name == site.Name {
			c.Sites[i] = site
			replaced = true
			break
		}
	}
	if !replaced {
		c.Sites = append(c.Sites, site)
	}
	if c.Defaults.PreferredSite == "" {
		c.Defaults.PreferredSite = site.Name
	}
	return c.Save()
}

func (c *ClientConfig) RemoveSite(name string) error {
	for i := range c.Sites {
		if c.Sites[i].Name != name {
			continue
		}
		c.Sites = append(c.Sites[:i], c.Sites[i+1:]...)
		if c.Defaults.PreferredSite == name {
			c.Defaults.PreferredSite = ""
			if len(c.Sites) > 0 {
				c.Defaults.PreferredSite = c.Sites[0].Name
			}
		}
		return c.Save()
	}
	return fmt.Errorf("site %q not found", name)
}

// ResolveConnection picks the site to talk to. An explicit address wins,
// then a named site, then the preferred site. An explicit token overrides
// the stored one.
func (c *ClientConfig) ResolveConnection(siteName, address, token string) (*ConnectionConfig, error) {
	conn := &ConnectionConfig{Timeout: defaultClientTimeout}
	if c.Defaults.Timeout != "" {
		if t, err := time.ParseDuration(c.Defaults.Timeout); err == nil {
			conn.Timeout = t
		}
	}

	switch {
	case address != "":
		conn.Address = normalizeAddress(address)
		for _, s := range c.Sites {
			if s.AdminAddress == conn.Address {
				conn.Token = s.Token
				break
			}
		}
	case siteName != "" || c.Defaults.PreferredSite != "":
		if siteName == "" {
			siteName = c.Defaults.PreferredSite
		}
		site, err := c.GetSite(siteName)
		if err != nil {
			return nil, err
		}
		conn.Address = site.AdminAddress
		conn.Token = site.Token
	default:
		conn.Address = normalizeAddress("127.0.0.1")
	}

	if token != "" {
		conn.Token = token
	}
	return conn, nil
}

// normalizeAddress adds the default admin port when it is missing
func normalizeAddress(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, defaultAdminPort)
}
