package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single probe, including connect and headers.
const DefaultTimeout = 5 * time.Second

// maxDrainBytes caps how much of a response body is read before closing so
// the connection can be reused.
const maxDrainBytes = 4 << 10

// Config configures a Prober.
type Config struct {
	URL     string        // health endpoint, e.g. http://localhost:3000/api/health
	Timeout time.Duration // zero means DefaultTimeout
	Client  *http.Client  // optional; Timeout is enforced per request regardless

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

func (c Config) validate() error {
	if c.URL == "" {
		return errors.New("health URL must not be empty")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("parse health URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("health URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// Prober issues GET requests against a fixed health endpoint.
// It is safe for concurrent use.
type Prober struct {
	url     string
	timeout time.Duration
	client  *http.Client
	group   singleflight.Group
	log     *slog.Logger
}

// NewProber validates cfg and returns a Prober.
func NewProber(cfg Config) (*Prober, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid health config: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{url: cfg.URL, timeout: timeout, client: client, log: logger}, nil
}

// URL returns the probed endpoint.
func (p *Prober) URL() string {
	return p.url
}

// Check reports whether the endpoint answered with a 2xx status within the
// probe timeout. Callers arriving while a probe is in flight get its result.
//
// The probe runs on a context detached from ctx's cancellation so one
// caller giving up does not fail the others waiting on the same request.
func (p *Prober) Check(ctx context.Context) bool {
	v, _, _ := p.group.Do(p.url, func() (any, error) {
		return p.probe(context.WithoutCancel(ctx)), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (p *Prober) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		p.log.Warn("health probe: build request", "url", p.url, "error", err)
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("health probe failed", "url", p.url, "error", err)
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
	}()

	healthy := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !healthy {
		p.log.Debug("health probe: unhealthy status", "url", p.url, "status", resp.StatusCode)
	}
	return healthy
}
