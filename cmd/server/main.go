package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/mwsanalytics/posts-backend/internal/config"
	"github.com/mwsanalytics/posts-backend/internal/mws"
	"github.com/mwsanalytics/posts-backend/internal/post"
	"github.com/mwsanalytics/posts-backend/internal/posts"
	"github.com/mwsanalytics/posts-backend/internal/ratelimit"
	"github.com/mwsanalytics/posts-backend/internal/redis"
	"github.com/mwsanalytics/posts-backend/internal/registry"
	"github.com/mwsanalytics/posts-backend/internal/server"
	"github.com/mwsanalytics/posts-backend/internal/version"
)

// infrastructure holds core infrastructure components.
type infrastructure struct {
	redisClient redis.Client // nil when Redis is not configured
	store       registry.Store
	limiter     ratelimit.Limiter
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	logger := setupLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadAndValidateConfig(logger, *configPath)
	if err != nil {
		logger.WithError(err).Fatal("Configuration error")
	}

	infra, err := setupInfrastructure(ctx, logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Infrastructure setup failed")
	}

	svc, err := setupService(ctx, logger, cfg, infra)
	if err != nil {
		logger.WithError(err).Fatal("Service setup failed")
	}

	srv := startServer(cfg, logger, infra, svc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	shutdownGracefully(logger, cfg, srv, infra)
}

// setupLogger creates and configures the application logger.
func setupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logger.WithFields(logrus.Fields{
		"version":    version.Short(),
		"git_commit": version.GitCommit,
		"build_date": version.BuildDate,
	}).Info("Starting...")

	return logger
}

// loadAndValidateConfig loads the configuration file and validates it.
func loadAndValidateConfig(logger *logrus.Logger, configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, parseErr := logrus.ParseLevel(cfg.Server.LogLevel)
	if parseErr != nil {
		logger.WithError(parseErr).Warn("Invalid log level, using info")

		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"port":      cfg.Server.Port,
		"log_level": cfg.Server.LogLevel,
		"tables":    len(cfg.Tables),
		"redis":     cfg.Redis.Enabled(),
	}).Info("Configuration loaded")

	return cfg, nil
}

// setupInfrastructure connects to Redis when configured. Without Redis,
// added tables live only in memory and rate limiting is off.
func setupInfrastructure(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
) (*infrastructure, error) {
	infra := &infrastructure{store: registry.NopStore{}}

	if !cfg.Redis.Enabled() {
		logger.Warn("Redis not configured, added tables will not survive a restart")

		return infra, nil
	}

	infra.redisClient = redis.NewClient(logger, redis.Config{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
	})

	if err := infra.redisClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start Redis client: %w", err)
	}

	infra.store = registry.NewRedisStore(logger, infra.redisClient)

	if cfg.RateLimiting.Enabled {
		infra.limiter = ratelimit.New(logger, infra.redisClient.GetClient(), cfg.RateLimiting.FailureMode)
	}

	return infra, nil
}

// setupService builds the MWS client and the posts service, then registers
// configured tables followed by the ones added at runtime earlier. Tables
// load on their first read.
func setupService(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
	infra *infrastructure,
) (*posts.Service, error) {
	client, err := mws.New(&cfg.MWS.Config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create MWS client: %w", err)
	}

	svc := posts.New(logger, posts.Config{
		MinRefreshInterval: cfg.Cache.MinRefreshInterval,
		RefreshTimeout:     cfg.Cache.RefreshTimeout,
		Limit:              cfg.Cache.Limit,
		DefaultToken:       cfg.MWS.Token,
	}, registry.New(logger), infra.store, client)

	for _, table := range cfg.Tables {
		variant, _ := post.LookupVariant(table.Variant)

		err := svc.RegisterTable(table.Name, mws.Datasheet{
			ID:     table.DatasheetID,
			ViewID: table.ViewID,
			Token:  table.Token,
		}, variant)
		if err != nil {
			return nil, fmt.Errorf("register table %s: %w", table.Name, err)
		}
	}

	restored, err := svc.RestoreTables(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to restore added tables")
	}

	logger.WithFields(logrus.Fields{
		"configured": len(cfg.Tables),
		"restored":   restored,
	}).Info("Tables registered")

	return svc, nil
}

// startServer creates and starts the HTTP server.
func startServer(
	cfg *config.Config,
	logger *logrus.Logger,
	infra *infrastructure,
	svc *posts.Service,
) *server.Server {
	srv := server.New(logger, cfg, svc, infra.limiter)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server error")
		}
	}()

	return srv
}

// shutdownGracefully stops accepting requests, then closes Redis.
func shutdownGracefully(
	logger *logrus.Logger,
	cfg *config.Config,
	srv *server.Server,
	infra *infrastructure,
) {
	logger.Info("Initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during server shutdown")
	}

	if infra.redisClient != nil {
		if err := infra.redisClient.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping Redis client")
		}
	}

	logger.Info("Server stopped gracefully")
}
