package sheets

import (
	"context"
	"errors"

	"moim/internal/core"
)

// ErrNoSnapshot is returned by readers that have nothing to serve yet, such
// as a local store before its first refresh.
var ErrNoSnapshot = errors.New("no snapshot stored yet")

// Ports for outbound adapters.
type (
	// SnapshotReader loads one consistent copy of the club's tables.
	SnapshotReader interface {
		ReadSnapshot(ctx context.Context) (core.Snapshot, error)
	}

	// SnapshotWriter replaces the stored copy in one step; readers never see
	// a half-written snapshot.
	SnapshotWriter interface {
		ReplaceSnapshot(ctx context.Context, s core.Snapshot) error
	}
)
