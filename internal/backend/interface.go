package backend

import (
	"context"

	"moim/internal/sheets"
)

// Backend is the snapshot source the dashboard reports on.
type Backend interface {
	sheets.SnapshotReader
}

// Pinger is implemented by backends with a cheap liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
