// Package export reads the club's tabs from a spreadsheet's published CSV
// export, the way the browser dashboard loads them.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"moim/internal/core"
	"moim/internal/schema"
	ports "moim/internal/sheets"
)

// maxTabBytes bounds a single CSV download.
const maxTabBytes = 16 << 20

// ErrTabTooLarge is returned instead of a truncated tab.
var ErrTabTooLarge = errors.New("csv tab exceeds size limit")

type Config struct {
	BaseURL       string
	SpreadsheetID string
	MembersSheet  string
	LedgerSheet   string
	AssetsSheet   string
	RulesSheet    string
	Schema        *schema.Schema
}

type Client struct {
	cfg      Config
	http     *http.Client
	now      func() time.Time
	maxBytes int64
}

var _ ports.SnapshotReader = (*Client)(nil)

// New validates cfg and returns a client. A nil httpClient gets a pooled
// client with conservative timeouts.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.Schema == nil {
		return nil, errors.New("missing table schema")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("export base url: %w", err)
	}
	if httpClient == nil {
		httpClient = newHTTPClientWithPooling()
	}
	return &Client{cfg: cfg, http: httpClient, now: time.Now, maxBytes: maxTabBytes}, nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
// and bounded timeouts for repeated CSV downloads.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// TabURL is the CSV export address of one tab.
func (c *Client) TabURL(sheet string) string {
	q := url.Values{}
	q.Set("tqx", "out:csv")
	q.Set("sheet", sheet)
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/%s/gviz/tq?%s", base, url.PathEscape(c.cfg.SpreadsheetID), q.Encode())
}

func (c *Client) ReadSnapshot(ctx context.Context) (core.Snapshot, error) {
	var members, ledger, assets, rules [][]string

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(sheet string, dst *[][]string) {
		if sheet == "" {
			return
		}
		g.Go(func() error {
			rows, err := c.fetchTab(gctx, sheet)
			if err != nil {
				return fmt.Errorf("export %s: %w", sheet, err)
			}
			*dst = rows
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
	snap.Source = "export:" + c.cfg.SpreadsheetID
	snap.FetchedAt = c.now()
	return snap, nil
}

func (c *Client) fetchTab(ctx context.Context, sheet string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TabURL(sheet), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		// Unpublished sheets redirect to a sign-in page.
		return nil, fmt.Errorf("got %s instead of CSV; is the sheet published?", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTabTooLarge, c.maxBytes)
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}
