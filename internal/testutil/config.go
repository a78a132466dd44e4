package testutil

import (
	"time"

	"github.com/mwsanalytics/posts-backend/internal/config"
)

// NewTestConfig returns a minimal valid config for testing.
func NewTestConfig() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			LogLevel:        "info",
		},
		MWS: config.MWSConfig{Token: "test-token"},
	}

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}
