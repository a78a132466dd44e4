package tablecache

import (
	"fmt"
	"time"

	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/post"
)

const (
	DefaultMinRefreshInterval = 1 * time.Second
	DefaultRefreshTimeout     = 30 * time.Second
	DefaultLimit              = 10000
)

// Config describes one cached remote table.
type Config struct {
	Name      string
	Datasheet mws.Datasheet
	Variant   *post.Variant

	// MinRefreshInterval is the staleness window: a snapshot younger than
	// this is served without contacting the remote table.
	MinRefreshInterval time.Duration
	RefreshTimeout     time.Duration

	// Limit caps the number of posts any read returns.
	Limit int
}

// Validate validates and sets defaults for Config.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}

	if c.Datasheet.ID == "" {
		return fmt.Errorf("datasheet id is required")
	}

	if c.Datasheet.ViewID == "" {
		return fmt.Errorf("view id is required")
	}

	if c.Variant == nil {
		c.Variant = post.General
	}

	if c.MinRefreshInterval == 0 {
		c.MinRefreshInterval = DefaultMinRefreshInterval
	}

	if c.RefreshTimeout == 0 {
		c.RefreshTimeout = DefaultRefreshTimeout
	}

	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}

	if c.MinRefreshInterval < 0 {
		return fmt.Errorf("min_refresh_interval must not be negative, got %v", c.MinRefreshInterval)
	}

	if c.RefreshTimeout < 0 {
		return fmt.Errorf("refresh_timeout must not be negative, got %v", c.RefreshTimeout)
	}

	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}

	return nil
}
