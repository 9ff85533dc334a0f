package transit

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single feed request.
const DefaultTimeout = 30 * time.Second

// HTTPFeed fetches vehicle positions from an operator endpoint.
type HTTPFeed struct {
	name       string
	url        string
	format     string
	httpClient *http.Client
	debug      bool
}

// HTTPConfig holds configuration for the HTTP feed.
type HTTPConfig struct {
	Name    string
	URL     string
	Format  string // "json" or "protobuf"
	Timeout time.Duration
	Debug   bool
}

// NewHTTPFeed creates a new HTTP feed.
func NewHTTPFeed(cfg HTTPConfig) *HTTPFeed {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if cfg.Name == "" {
		cfg.Name = "vehicle feed"
	}
	return &HTTPFeed{
		name:       cfg.Name,
		url:        cfg.URL,
		format:     cfg.Format,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		debug:      cfg.Debug,
	}
}

func (f *HTTPFeed) Name() string { return f.name }

// Fetch downloads and decodes the feed. Non-200 responses are errors.
func (f *HTTPFeed) Fetch(ctx context.Context) ([]Vehicle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", f.url, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", f.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, f.url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.url, err)
	}

	vehicles, err := Decode(f.format, body)
	if err != nil {
		return nil, err
	}
	if f.debug {
		log.Printf("[feed] %d vehicles from %s (%d bytes)", len(vehicles), f.url, len(body))
	}
	return vehicles, nil
}
