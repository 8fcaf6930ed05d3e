package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultProbeTimeout   = 10 * time.Second
	DefaultRequestTimeout = 15 * time.Second

	maxResponseBytes = 4 << 20
)

// Prober checks whether a site is reachable and runs this protocol.
type Prober interface {
	Ping(ctx context.Context, siteURL string) error
}

// Remote is the outbound side of the federation protocol.
type Remote interface {
	FetchSnapshot(ctx context.Context, hostURL, ringID, secret, memberURL string) (*RingSnapshot, error)
	Join(ctx context.Context, hostURL, ringID string, req JoinRequest) (JoinStatus, error)
	Rate(ctx context.Context, hostURL, ringID string, req RateRequest) error
}

// ClientConfig holds the outbound timeouts. Zero values fall back to the
// defaults.
type ClientConfig struct {
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
	UserAgent      string
}

// Client talks to other sites over HTTP. Calls are never retried: a
// failure is returned to the caller, or skipped until the next cycle.
type Client struct {
	http    *http.Client
	cfg     ClientConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewClient creates a federation client
func NewClient(cfg ClientConfig, metrics *Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ringlink/" + Version
	}
	return &Client{
		http:    &http.Client{},
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Ping probes the site's liveness endpoint. Only a 2xx answer carrying
// {"status":"ok"} counts as alive.
func (c *Client) Ping(ctx context.Context, siteURL string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	var resp PingResponse
	err := c.do(ctx, http.MethodGet, endpoint(siteURL, "ping"), nil, &resp)
	c.metrics.observeProbe(time.Since(start), err)
	if err != nil {
		return err
	}
	if resp.Status != "ok" {
		return transient(fmt.Sprintf("%s answered ping with status %q", siteURL, resp.Status), nil)
	}
	return nil
}

// FetchSnapshot pulls the authoritative state of a ring from its host
func (c *Client) FetchSnapshot(ctx context.Context, hostURL, ringID, secret, memberURL string) (*RingSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	u := endpoint(hostURL, "ring", url.PathEscape(ringID))
	q := url.Values{}
	if secret != "" {
		q.Set("secret", secret)
	}
	if memberURL != "" {
		q.Set("member", memberURL)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var snap RingSnapshot
	if err := c.do(ctx, http.MethodGet, u, nil, &snap); err != nil {
		return nil, err
	}
	if snap.Members == nil {
		return nil, transient(fmt.Sprintf("%s returned a snapshot without members", hostURL), nil)
	}
	return &snap, nil
}

// Join asks the host to admit this site into one of its rings
func (c *Client) Join(ctx context.Context, hostURL, ringID string, req JoinRequest) (JoinStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var resp JoinResponse
	if err := c.do(ctx, http.MethodPost, endpoint(hostURL, "ring", url.PathEscape(ringID), "join"), req, &resp); err != nil {
		return "", err
	}
	switch resp.Status {
	case JoinApproved, JoinPending, JoinAlreadyMember:
		return resp.Status, nil
	}
	return "", transient(fmt.Sprintf("%s answered join with unknown status %q", hostURL, resp.Status), nil)
}

// Rate forwards a rating to the host of a ring
func (c *Client) Rate(ctx context.Context, hostURL, ringID string, req RateRequest) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var resp RateResponse
	return c.do(ctx, http.MethodPost, endpoint(hostURL, "ring", url.PathEscape(ringID), "rate"), req, &resp)
}

func (c *Client) do(ctx context.Context, method, u string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return validationf("invalid remote url %q", u)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Remote call failed", zap.String("url", u), zap.Error(err))
		return transient("remote site unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transient("reading remote response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb ErrorBody
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &eb) == nil && eb.Message != "" {
			msg = eb.Message
		}
		return &RemoteError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return transient("malformed remote response", err)
	}
	return nil
}
