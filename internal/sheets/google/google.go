// Package google reads the club's tabs through the Google Sheets API v4.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moim/internal/core"
	"moim/internal/schema"
	ports "moim/internal/sheets"
)

// Config names the spreadsheet and its tabs. RulesSheet may be empty.
type Config struct {
	SpreadsheetID string
	MembersSheet  string
	LedgerSheet   string
	AssetsSheet   string
	RulesSheet    string
	Schema        *schema.Schema
}

// valuesFunc fetches one A1 range as a values matrix.
type valuesFunc func(ctx context.Context, rng string) ([][]interface{}, error)

type Client struct {
	cfg    Config
	values valuesFunc
	now    func() time.Time
}

// Ensure interface conformance
var _ ports.SnapshotReader = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.Schema == nil {
		return nil, errors.New("missing table schema")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(cfg, serviceValues(svc, cfg.SpreadsheetID)), nil
}

func newClient(cfg Config, values valuesFunc) *Client {
	return &Client{cfg: cfg, values: values, now: time.Now}
}

func serviceValues(svc *gsheet.Service, spreadsheetID string) valuesFunc {
	return func(ctx context.Context, rng string) ([][]interface{}, error) {
		resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, rng).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}
}

// newSheetsService initializes a read-only Sheets Service using Service
// Account credentials from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service", "credentials_size", len(credentialsJSON))
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// ReadSnapshot fetches all tabs concurrently and decodes them. Any failing
// tab fails the whole read so callers never mix tabs from different moments.
func (c *Client) ReadSnapshot(ctx context.Context) (core.Snapshot, error) {
	var members, ledger, assets, rules [][]string

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(sheet string, dst *[][]string) {
		if sheet == "" {
			return
		}
		g.Go(func() error {
			vals, err := c.values(gctx, quoteSheet(sheet))
			if err != nil {
				return fmt.Errorf("read %s: %w", sheet, err)
			}
			*dst = toRows(vals)
			return nil
		})
	}
	fetch(c.cfg.MembersSheet, &members)
	fetch(c.cfg.LedgerSheet, &ledger)
	fetch(c.cfg.AssetsSheet, &assets)
	fetch(c.cfg.RulesSheet, &rules)
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}

	snap, err := ports.Decode(c.cfg.Schema, ports.Tables{
		Members: members,
		Ledger:  ledger,
		Assets:  assets,
		Rules:   ports.RulesText(rules),
	})
	if err != nil {
		return core.Snapshot{}, err
	}
	snap.Source = "sheets:" + c.cfg.SpreadsheetID
	snap.FetchedAt = c.now()
	return snap, nil
}

// quoteSheet turns a tab name into an A1 range covering the whole tab.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toRows(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		out[i] = cells
	}
	return out
}

// cellString renders an unformatted cell. Whole numbers come back from the
// API as float64 and must not pick up an exponent.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
