package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"moim/internal/amqp"
	"moim/internal/backend"
	"moim/internal/cli"
	apphttp "moim/internal/http"
	applog "moim/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	schemaDef, err := cfg.Schema()
	if err != nil {
		logger.Failure(context.Background(), "Failed to load table schema", err)
		os.Exit(1)
	}
	reconciler, err := cli.NewReconciler(cfg, schemaDef)
	if err != nil {
		logger.Failure(context.Background(), "Invalid dues policy", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Failure(context.Background(), "Invalid backend configuration", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Failure(context.Background(), "Failed to initialize backend", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Reader:     result.Backend,
		Reconciler: reconciler,
		CacheTTL:   cfg.ReportCacheTTL,
		Logger:     logger,
	})

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Reports still expire on their own TTL without notifications.
			logger.Failure(context.Background(), "AMQP unavailable, relying on cache TTL", err)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Failure(ctx, "Server shutdown error", err)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Failure(ctx, "Backend cleanup error", err)
			}
		}
	})

	if amqpClient != nil {
		amqpLogger := logger.WithComponent(applog.ComponentAMQP)
		go func() {
			err := amqpClient.ConsumeSnapshotRefreshed(ctx, func(ctx context.Context, msg *amqp.SnapshotRefreshedMessage) error {
				n := srv.InvalidateReports()
				amqpLogger.Info("Snapshot refreshed upstream",
					applog.FieldSource, msg.Source,
					applog.FieldMembers, msg.Members,
					applog.FieldLedgerEntries, msg.LedgerEntries,
					"purged", n)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				amqpLogger.Failure(ctx, "Refresh consumer stopped", err)
			}
		}()
	}

	logger.Info("Starting moim server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		applog.FieldSchema, schemaDef.Version,
		"dues_epoch", reconciler.Policy.Epoch.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Failure(context.Background(), "Server error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
