package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ringlink/pkg/scheduler"
	"ringlink/pkg/storage"
	"ringlink/pkg/types"
	"ringlink/pkg/utils"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. RINGLINK_HTTP_ADDRESS
const EnvPrefix = "RINGLINK"

const defaultMaxBodySize = 64 << 10

type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Timeouts TimeoutConfig  `mapstructure:"timeouts"`
}

// SiteConfig seeds the site identity on first start. Once saved through the
// admin API the stored identity wins.
type SiteConfig struct {
	URL     string `mapstructure:"url"`
	Name    string `mapstructure:"name"`
	PageURL string `mapstructure:"page_url"`
	Image   string `mapstructure:"image"`
	Excerpt string `mapstructure:"excerpt"`
}

func (s SiteConfig) Identity() types.Identity {
	return types.Identity{
		URL:     s.URL,
		Name:    s.Name,
		PageURL: s.PageURL,
		Image:   s.Image,
		Excerpt: s.Excerpt,
	}.WithDefaults()
}

type HTTPConfig struct {
	Address     string `mapstructure:"address"`
	MaxBodySize string `mapstructure:"max_body_size"`
}

// MaxBodyBytes is the parsed request body limit
func (h HTTPConfig) MaxBodyBytes() int64 {
	return utils.ParseDataSizeWithDefault(h.MaxBodySize, defaultMaxBodySize)
}

type AdminConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

func (s StorageConfig) Options() storage.Options {
	return storage.Options{Backend: s.Backend, Path: s.Path}
}

type ScheduleConfig struct {
	Health           string `mapstructure:"health"`
	Sync             string `mapstructure:"sync"`
	ProbeConcurrency int    `mapstructure:"probe_concurrency"`
	SyncConcurrency  int    `mapstructure:"sync_concurrency"`
}

type TimeoutConfig struct {
	Probe   time.Duration `mapstructure:"probe"`
	Request time.Duration `mapstructure:"request"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.url", "")
	v.SetDefault("site.name", "")
	v.SetDefault("site.page_url", "")
	v.SetDefault("site.image", "")
	v.SetDefault("site.excerpt", "")
	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.max_body_size", "64KiB")
	v.SetDefault("admin.address", "127.0.0.1:7070")
	v.SetDefault("admin.token", "")
	v.SetDefault("storage.backend", storage.BackendPebble)
	v.SetDefault("storage.path", "./data/ringlink")
	v.SetDefault("schedule.health", scheduler.DefaultSpec)
	v.SetDefault("schedule.sync", scheduler.DefaultSpec)
	v.SetDefault("schedule.probe_concurrency", 8)
	v.SetDefault("schedule.sync_concurrency", 4)
	v.SetDefault("timeouts.probe", 10*time.Second)
	v.SetDefault("timeouts.request", 15*time.Second)
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from cfgFile (YAML or JSON) and the environment.
// Without a file it looks for ringlink.yaml in the working directory and
// /etc/ringlink, and falls back to defaults when none is found.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("ringlink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ringlink")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations, schedules and limits
func (c *Config) Validate() error {
	var errs []error

	if c.Site.URL != "" && !isAbsoluteURL(c.Site.URL) {
		errs = append(errs, fmt.Errorf("site.url must be an absolute http(s) url, got %q", c.Site.URL))
	}
	if c.HTTP.Address == "" {
		errs = append(errs, errors.New("http.address is required"))
	}
	if _, err := utils.ParseDataSize(c.HTTP.MaxBodySize); err != nil {
		errs = append(errs, fmt.Errorf("http.max_body_size: %w", err))
	}
	if c.Admin.Address == "" {
		errs = append(errs, errors.New("admin.address is required"))
	}

	switch c.Storage.Backend {
	case storage.BackendMemory:
	case storage.BackendPebble, storage.BackendSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of memory, pebble, sqlite, got %q", c.Storage.Backend))
	}

	if err := scheduler.ValidateSpec(c.Schedule.Health); err != nil {
		errs = append(errs, fmt.Errorf("schedule.health: %w", err))
	}
	if err := scheduler.ValidateSpec(c.Schedule.Sync); err != nil {
		errs = append(errs, fmt.Errorf("schedule.sync: %w", err))
	}
	if c.Schedule.ProbeConcurrency < 1 || c.Schedule.SyncConcurrency < 1 {
		errs = append(errs, errors.New("schedule concurrency must be at least 1"))
	}
	if c.Timeouts.Probe <= 0 || c.Timeouts.Request <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}

	return errors.Join(errs...)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
