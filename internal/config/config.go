package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"moim/internal/core"
	"moim/internal/schema"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend string
	DataDir     string

	// Database
	SQLiteDBPath string

	// AMQP. AMQPQueue is the routing key each server binds its own queue to.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string
	MembersSheet        string
	LedgerSheet         string
	AssetsSheet         string
	RulesSheet          string

	// Published CSV export
	ExportBaseURL string

	// Table layout
	SchemaVersion string
	SchemaFile    string

	// Dues policy
	DuesEpoch          string
	DuesInitialFee     int64
	DuesMonthlyRate    int64
	DuesMonthReference string
	CondolenceUnit     int64
	CategoryMatch      string

	// Caching and worker
	ReportCacheTTL time.Duration
	SyncInterval   time.Duration
	SyncSource     string
}

var validBackends = []string{"memory", "sheets", "export", "sqlite"}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moim.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moim"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_refreshed"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		MembersSheet:        getEnv("GOOGLE_MEMBERS_SHEET", "회원"),
		LedgerSheet:         getEnv("GOOGLE_LEDGER_SHEET", "장부"),
		AssetsSheet:         getEnv("GOOGLE_ASSETS_SHEET", "자산"),
		RulesSheet:          getEnv("GOOGLE_RULES_SHEET", "회칙"),

		ExportBaseURL: getEnv("EXPORT_BASE_URL", "https://docs.google.com/spreadsheets/d"),

		SchemaVersion: getEnv("SCHEMA_VERSION", "v1"),
		SchemaFile:    getEnv("SCHEMA_FILE", ""),

		DuesEpoch:          getEnv("DUES_EPOCH", "2020-02"),
		DuesInitialFee:     getEnvInt64("DUES_INITIAL_FEE", 100000),
		DuesMonthlyRate:    getEnvInt64("DUES_MONTHLY_RATE", 30000),
		DuesMonthReference: getEnv("DUES_MONTH_REFERENCE", string(core.ReferenceCurrent)),
		CondolenceUnit:     getEnvInt64("CONDOLENCE_UNIT", 1000000),
		CategoryMatch:      getEnv("CATEGORY_MATCH", ""),

		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
		SyncInterval:   getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		SyncSource:     getEnv("SYNC_SOURCE", "sheets"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "sheets", "export":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, fmt.Sprintf("Google Spreadsheet ID is required when using %s backend", c.DataBackend))
		}
		for name, v := range map[string]string{
			"members": c.MembersSheet, "ledger": c.LedgerSheet, "assets": c.AssetsSheet,
		} {
			if strings.TrimSpace(v) == "" {
				errors = append(errors, fmt.Sprintf("%s sheet name cannot be empty", name))
			}
		}
	}

	if c.DataBackend == "export" {
		if u, err := url.Parse(c.ExportBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid export base URL '%s': must be http or https", c.ExportBaseURL))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate schema selection
	if c.SchemaFile != "" {
		if _, err := os.Stat(c.SchemaFile); err != nil {
			errors = append(errors, fmt.Sprintf("schema file '%s' is not readable: %v", c.SchemaFile, err))
		}
	} else if !slices.Contains(schema.Versions(), c.SchemaVersion) {
		errors = append(errors, fmt.Sprintf("unknown schema version '%s': must be one of %v", c.SchemaVersion, schema.Versions()))
	}

	// Validate dues policy
	if _, err := c.DuesPolicy(); err != nil {
		errors = append(errors, err.Error())
	}
	if c.CondolenceUnit <= 0 {
		errors = append(errors, fmt.Sprintf("invalid condolence unit %d: must be positive", c.CondolenceUnit))
	}
	if c.CategoryMatch != "" && !core.MatchMode(c.CategoryMatch).IsValid() {
		errors = append(errors, fmt.Sprintf("invalid category match '%s': must be 'exact' or 'contains'", c.CategoryMatch))
	}

	if c.ReportCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must not be negative", c.ReportCacheTTL))
	} else if c.ReportCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must be at most 24 hours", c.ReportCacheTTL))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if c.SyncSource != "sheets" && c.SyncSource != "export" {
		errors = append(errors, fmt.Sprintf("invalid sync source '%s': must be 'sheets' or 'export'", c.SyncSource))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DuesPolicy builds the dues policy from the DUES_* settings.
func (c *Config) DuesPolicy() (core.DuesPolicy, error) {
	epoch, err := core.ParseMonth(c.DuesEpoch)
	if err != nil {
		return core.DuesPolicy{}, fmt.Errorf("invalid dues epoch '%s': %w", c.DuesEpoch, err)
	}
	p := core.DuesPolicy{
		Epoch:       epoch,
		InitialFee:  c.DuesInitialFee,
		MonthlyRate: c.DuesMonthlyRate,
		Reference:   core.MonthReference(c.DuesMonthReference),
	}
	if err := p.Validate(); err != nil {
		return core.DuesPolicy{}, fmt.Errorf("invalid dues policy: %w", err)
	}
	return p, nil
}

// Schema loads the table layout: SCHEMA_FILE wins over SCHEMA_VERSION.
func (c *Config) Schema() (*schema.Schema, error) {
	if c.SchemaFile != "" {
		return schema.Load(c.SchemaFile)
	}
	return schema.Builtin(c.SchemaVersion)
}

// Taxonomy returns the layout's taxonomy with CATEGORY_MATCH applied.
func (c *Config) Taxonomy(s *schema.Schema) core.Taxonomy {
	tx := s.CoreTaxonomy()
	if c.CategoryMatch != "" {
		tx.Mode = core.MatchMode(c.CategoryMatch)
	}
	return tx
}

// Level returns the slog level for LOG_LEVEL, defaulting to info.
func (c *Config) Level() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", s)
	}
	return lvl, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(strings.ReplaceAll(value, ",", ""), 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
