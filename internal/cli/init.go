// Package cli holds the start-up steps shared by cmd/moim, cmd/moim-worker
// and cmd/moim-report.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moim/internal/config"
	applog "moim/internal/log"
	"moim/internal/schema"
	"moim/internal/services"
	"moim/internal/storage"
)

// SetupLogger builds the application logger at the configured level and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		lc.Level = cfg.Level()
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		// The configured logger depends on a valid config.
		applog.New(applog.DefaultConfig()).Failure(context.Background(), "Configuration validation failed", err)
		os.Exit(1)
	}
	return cfg
}

// NewReconciler assembles the dues policy, taxonomy and asset tags.
func NewReconciler(cfg *config.Config, s *schema.Schema) (services.Reconciler, error) {
	policy, err := cfg.DuesPolicy()
	if err != nil {
		return services.Reconciler{}, err
	}
	if s == nil {
		return services.Reconciler{}, fmt.Errorf("missing table schema")
	}
	return services.Reconciler{
		Policy:         policy,
		Taxonomy:       cfg.Taxonomy(s),
		DuesAccountTag: s.AssetTags.DuesAccount,
		SavingsTag:     s.AssetTags.Savings,
		CondolenceUnit: cfg.CondolenceUnit,
	}, nil
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Failure(context.Background(), "Failed to initialize SQLite repository", err, "path", dbPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath, "schema_version", repo.SchemaVersion())
	return repo
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
