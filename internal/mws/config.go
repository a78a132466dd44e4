//nolint:tagliatelle // superior snake-case yo.
package mws

import (
	"fmt"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://tables.mws.ru/fusion/v1"

// Config holds MWS Tables client configuration.
type Config struct {
	BaseURL           string        `yaml:"base_url"`            // API root, without /datasheets
	RequestTimeout    time.Duration `yaml:"request_timeout"`     // Per-request HTTP timeout
	PageSize          int           `yaml:"page_size"`           // Records per list page (max 1000)
	RequestsPerSecond float64       `yaml:"requests_per_second"` // Client-side request pacing
	Burst             int           `yaml:"burst"`
}

// Validate validates and sets defaults for Config.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = 15 * time.Second
	}

	if c.PageSize == 0 {
		c.PageSize = 1000
	}

	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5
	}

	if c.Burst == 0 {
		c.Burst = 5
	}

	if c.RequestTimeout < 1*time.Second {
		return fmt.Errorf("request_timeout must be at least 1 second, got %v", c.RequestTimeout)
	}

	if c.PageSize < 1 || c.PageSize > 1000 {
		return fmt.Errorf("page_size must be between 1 and 1000, got %d", c.PageSize)
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}

	if c.Burst < 1 {
		return fmt.Errorf("burst must be positive, got %d", c.Burst)
	}

	return nil
}

// HTTPClient creates an HTTP client with configured timeout.
func (c *Config) HTTPClient() *http.Client {
	return &http.Client{
		Timeout: c.RequestTimeout,
	}
}
