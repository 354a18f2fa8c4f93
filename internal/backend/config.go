package backend

import (
	"errors"
	"fmt"

	"moim/internal/config"
	"moim/internal/schema"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets and export specific
	GoogleSpreadsheetID string
	MembersSheet        string
	LedgerSheet         string
	AssetsSheet         string
	RulesSheet          string
	ExportBaseURL       string

	// Memory backend specific
	DataDirectory string

	Schema *schema.Schema
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	ExportBackend BackendType = "export"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, ExportBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config for the
// configured DATA_BACKEND.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	return fromAppConfig(appConfig, BackendType(appConfig.DataBackend))
}

// UpstreamFromAppConfig builds the config for the worker's SYNC_SOURCE.
func UpstreamFromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	return fromAppConfig(appConfig, BackendType(appConfig.SyncSource))
}

func fromAppConfig(appConfig *config.Config, t BackendType) (Config, error) {
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", t)
	}
	s, err := appConfig.Schema()
	if err != nil {
		return Config{}, fmt.Errorf("load schema: %w", err)
	}
	return Config{
		Type:                t,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		MembersSheet:        appConfig.MembersSheet,
		LedgerSheet:         appConfig.LedgerSheet,
		AssetsSheet:         appConfig.AssetsSheet,
		RulesSheet:          appConfig.RulesSheet,
		ExportBaseURL:       appConfig.ExportBaseURL,
		DataDirectory:       appConfig.DataDir,
		Schema:              s,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend, ExportBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for %s backend", c.Type)
		}
		if c.Schema == nil {
			return fmt.Errorf("table schema is required for %s backend", c.Type)
		}
	case MemoryBackend:
		if c.Schema == nil {
			return errors.New("table schema is required for memory backend")
		}
	}
	return nil
}
