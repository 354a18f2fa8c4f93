package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"moim/internal/amqp"
	"moim/internal/backend"
	"moim/internal/cli"
	applog "moim/internal/log"
	"moim/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "refresh a single time and exit")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting moim-worker", "source", cfg.SyncSource, "interval", cfg.SyncInterval)

	upstreamCfg, err := backend.UpstreamFromAppConfig(cfg)
	if err != nil {
		logger.Failure(context.Background(), "Invalid upstream configuration", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger)
	upstream, err := factory.CreateBackend(context.Background(), upstreamCfg)
	if err != nil {
		logger.Failure(context.Background(), "Failed to initialize upstream", err, "source", cfg.SyncSource)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger.WithComponent(applog.ComponentStorage), cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher worker.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Servers fall back to their cache TTL without notifications.
			logger.Failure(context.Background(), "AMQP unavailable, refreshes will not be announced", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	w := worker.NewSnapshotWorker(upstream.Backend, repo, publisher, cfg.SyncInterval,
		logger.WithComponent(applog.ComponentWorker).Logger)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := w.RunOnce(ctx); err != nil {
			logger.Failure(ctx, "Snapshot refresh failed", err)
			os.Exit(1)
		}
		return
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Failure(ctx, "Worker stopped", err)
	}
	cli.WaitForShutdown(ctx, done)

	runs, failures := w.Stats()
	logger.Info("Worker shutdown complete", "runs", runs, "failures", failures)
}
