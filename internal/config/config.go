//nolint:tagliatelle // superior snake-case yo.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mwsanalytics/posts-backend/internal/mws"
)

// Config represents the complete application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Redis        RedisConfig        `yaml:"redis"`
	MWS          MWSConfig          `yaml:"mws"`
	Cache        CacheConfig        `yaml:"cache"`
	Tables       []TableConfig      `yaml:"tables"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// RedisConfig holds Redis client configuration. Redis is optional: without
// an address, tables added at runtime are not persisted and rate limiting
// is unavailable.
type RedisConfig struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// Enabled reports whether a Redis server is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Address != ""
}

// MWSConfig holds the MWS Tables API settings.
type MWSConfig struct {
	mws.Config `yaml:",inline"`

	// Token is the default API token for tables that do not set their own.
	Token string `yaml:"token"`
}

// CacheConfig holds the settings shared by every table cache.
type CacheConfig struct {
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval"` // Staleness window
	RefreshTimeout     time.Duration `yaml:"refresh_timeout"`      // Bound on one remote fetch
	Limit              int           `yaml:"limit"`                // Max posts per read
}

// RateLimitingConfig holds rate limiting configuration.
type RateLimitingConfig struct {
	Enabled     bool            `yaml:"enabled"`
	FailureMode string          `yaml:"failure_mode"` // "fail_open" or "fail_closed"
	ExemptIPs   []string        `yaml:"exempt_ips"`   // CIDR ranges to whitelist
	Rules       []RateLimitRule `yaml:"rules"`
}

// RateLimitRule defines a single rate limit rule.
type RateLimitRule struct {
	Name        string        `yaml:"name"`
	PathPattern string        `yaml:"path_pattern"` // Regex pattern
	Limit       int           `yaml:"limit"`        // Max requests
	Window      time.Duration `yaml:"window"`       // Time window
}

// Validate validates the cache configuration and sets defaults.
func (c *CacheConfig) Validate() error {
	if c.MinRefreshInterval == 0 {
		c.MinRefreshInterval = 1 * time.Second
	}

	if c.RefreshTimeout == 0 {
		c.RefreshTimeout = 30 * time.Second
	}

	if c.Limit == 0 {
		c.Limit = 10000
	}

	if c.MinRefreshInterval < 0 {
		return fmt.Errorf("min_refresh_interval must not be negative, got %v", c.MinRefreshInterval)
	}

	if c.RefreshTimeout < 1*time.Second {
		return fmt.Errorf("refresh_timeout must be at least 1 second, got %v", c.RefreshTimeout)
	}

	if c.Limit < 1 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}

	return nil
}

// Load loads configuration from a YAML file. ${VAR} references are expanded
// from the environment before parsing, so tokens can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		// Keep a literal "$" when written as "$$".
		if key == "$" {
			return "$"
		}

		return os.Getenv(key)
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.Redis.Enabled() {
		if c.Redis.DialTimeout <= 0 {
			return fmt.Errorf("redis.dial_timeout must be positive")
		}

		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be positive")
		}
	}

	if err := c.MWS.Validate(); err != nil {
		return fmt.Errorf("mws: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	tableNames := make(map[string]bool)

	for i := range c.Tables {
		table := &c.Tables[i]

		if err := table.Validate(c.MWS.Token); err != nil {
			return fmt.Errorf("table %d: %w", i, err)
		}

		if tableNames[table.Name] {
			return fmt.Errorf("duplicate table name: %s", table.Name)
		}

		tableNames[table.Name] = true
	}

	if c.RateLimiting.Enabled {
		if !c.Redis.Enabled() {
			return fmt.Errorf("rate_limiting: requires redis.address")
		}

		if err := c.validateRateLimiting(); err != nil {
			return fmt.Errorf("rate_limiting: %w", err)
		}
	}

	return nil
}

func (c *Config) validateRateLimiting() error {
	if c.RateLimiting.FailureMode != "fail_open" && c.RateLimiting.FailureMode != "fail_closed" {
		return fmt.Errorf("failure_mode must be 'fail_open' or 'fail_closed'")
	}

	if len(c.RateLimiting.Rules) == 0 {
		return fmt.Errorf("rules must have at least one rule")
	}

	for i, rule := range c.RateLimiting.Rules {
		if rule.Name == "" {
			return fmt.Errorf("rules[%d].name is required", i)
		}

		if rule.PathPattern == "" {
			return fmt.Errorf("rules[%d].path_pattern is required", i)
		}

		if rule.Limit <= 0 {
			return fmt.Errorf("rules[%d].limit must be positive", i)
		}

		if rule.Window <= 0 {
			return fmt.Errorf("rules[%d].window must be positive", i)
		}

		if _, err := regexp.Compile(rule.PathPattern); err != nil {
			return fmt.Errorf("rules[%d].path_pattern invalid regex: %w", i, err)
		}
	}

	for i, cidr := range c.RateLimiting.ExemptIPs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			// Try parsing as single IP
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("exempt_ips[%d] invalid IP or CIDR: %s", i, cidr)
			}
		}
	}

	return nil
}
