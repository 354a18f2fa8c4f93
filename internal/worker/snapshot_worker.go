// Package worker copies the upstream spreadsheet into local storage on a
// schedule and announces each refresh.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"moim/internal/amqp"
	"moim/internal/core"
	"moim/internal/sheets"
)

// Publisher announces a completed refresh.
type Publisher interface {
	PublishSnapshotRefreshed(ctx context.Context, msg *amqp.SnapshotRefreshedMessage) error
}

// SnapshotWorker reads the upstream snapshot and replaces the stored copy.
type SnapshotWorker struct {
	source    sheets.SnapshotReader
	store     sheets.SnapshotWriter
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger

	runs     atomic.Int64
	failures atomic.Int64
}

// NewSnapshotWorker builds a worker. publisher may be nil when AMQP is not
// configured.
func NewSnapshotWorker(source sheets.SnapshotReader, store sheets.SnapshotWriter, publisher Publisher, interval time.Duration, logger *slog.Logger) *SnapshotWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWorker{
		source:    source,
		store:     store,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

// RunOnce performs one refresh. A read or store failure leaves the stored
// snapshot as it was. A publish failure is logged but does not fail the
// refresh: the data is already stored.
func (w *SnapshotWorker) RunOnce(ctx context.Context) (core.Snapshot, error) {
	w.runs.Add(1)
	start := time.Now()

	snap, err := w.source.ReadSnapshot(ctx)
	if err != nil {
		w.failures.Add(1)
		return core.Snapshot{}, fmt.Errorf("read upstream snapshot: %w", err)
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = start
	}

	if err := w.store.ReplaceSnapshot(ctx, snap); err != nil {
		w.failures.Add(1)
		return core.Snapshot{}, fmt.Errorf("store snapshot: %w", err)
	}

	members, ledger, assets := snap.Counts()
	w.logger.InfoContext(ctx, "Snapshot refreshed",
		"source", snap.Source,
		"members", members,
		"ledger_entries", ledger,
		"assets", assets,
		"duration_ms", time.Since(start).Milliseconds())

	if w.publisher != nil {
		if err := w.publisher.PublishSnapshotRefreshed(ctx, amqp.NewSnapshotRefreshedMessage(snap)); err != nil {
			w.logger.WarnContext(ctx, "Failed to announce snapshot refresh", "error", err)
		}
	}
	return snap, nil
}

// Run refreshes immediately and then every interval until ctx is done.
// Failed cycles are retried at the next tick.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Snapshot worker started", "interval", w.interval)

	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Initial snapshot refresh failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Snapshot worker stopped",
				"runs", w.runs.Load(),
				"failures", w.failures.Load())
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Snapshot refresh failed", "error", err)
			}
		}
	}
}

// Stats returns how many refreshes ran and how many failed.
func (w *SnapshotWorker) Stats() (runs, failures int64) {
	return w.runs.Load(), w.failures.Load()
}
