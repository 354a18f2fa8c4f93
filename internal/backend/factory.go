package backend

import (
	"context"
	"fmt"
	"log/slog"

	"moim/internal/sheets/export"
	gsheet "moim/internal/sheets/google"
	"moim/internal/sheets/memory"
	"moim/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case ExportBackend:
		return f.createExportBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion())

	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID: config.GoogleSpreadsheetID,
		MembersSheet:  config.MembersSheet,
		LedgerSheet:   config.LedgerSheet,
		AssetsSheet:   config.AssetsSheet,
		RulesSheet:    config.RulesSheet,
		Schema:        config.Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "schema", config.Schema.Version)
	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createExportBackend(config Config) (*BackendResult, error) {
	cli, err := export.New(export.Config{
		BaseURL:       config.ExportBaseURL,
		SpreadsheetID: config.GoogleSpreadsheetID,
		MembersSheet:  config.MembersSheet,
		LedgerSheet:   config.LedgerSheet,
		AssetsSheet:   config.AssetsSheet,
		RulesSheet:    config.RulesSheet,
		Schema:        config.Schema,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize CSV export client: %w", err)
	}

	f.logger.Info("Initialized CSV export backend", "base_url", config.ExportBaseURL, "schema", config.Schema.Version)
	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromDir(dataDir, config.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir, "schema", config.Schema.Version)
	return &BackendResult{Backend: store}, nil
}
