// Package storage keeps the latest snapshot in SQLite so the dashboard can
// serve reports without reaching the spreadsheet on every request.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"moim/internal/core"
	ports "moim/internal/sheets"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	version uint
}

var (
	_ ports.SnapshotReader = (*SQLiteRepository)(nil)
	_ ports.SnapshotWriter = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, version: version}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SchemaVersion is the migration version applied at open.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.version
}

// ReplaceSnapshot swaps every table for the given snapshot in one
// transaction. On error the previous snapshot is left untouched.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, s core.Snapshot) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"members", "ledger_entries", "assets"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err = insertMembers(ctx, tx, s.Members); err != nil {
		return err
	}
	if err = insertLedger(ctx, tx, s.Ledger); err != nil {
		return err
	}
	if err = insertAssets(ctx, tx, s.Assets); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, source, fetched_at, rules, replaced_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			fetched_at = excluded.fetched_at,
			rules = excluded.rules,
			replaced_at = excluded.replaced_at`,
		s.Source, formatTime(s.FetchedAt), s.Rules, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write snapshot meta: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	members, ledger, assets := s.Counts()
	slog.InfoContext(ctx, "Snapshot stored in SQLite",
		"source", s.Source,
		"members", members,
		"ledger_entries", ledger,
		"assets", assets)
	return nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, members []core.Member) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO members (position, member_id, name, role, joined_on, credential)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare members insert: %w", err)
	}
	defer stmt.Close()
	for i, m := range members {
		if _, err := stmt.ExecContext(ctx, i, m.Key(), m.Name, m.Role, m.JoinedOn, m.Credential); err != nil {
			return fmt.Errorf("insert member %q: %w", m.Name, err)
		}
	}
	return nil
}

func insertLedger(ctx context.Context, tx *sql.Tx, ledger []core.LedgerEntry) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_entries (position, source_row, direction, category, counterparty, amount, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range ledger {
		_, err := stmt.ExecContext(ctx, i, e.Row, e.Direction.String(), e.Category, e.Counterparty, e.Amount, formatTime(e.OccurredAt))
		if err != nil {
			return fmt.Errorf("insert ledger row %d: %w", e.Row, err)
		}
	}
	return nil
}

func insertAssets(ctx context.Context, tx *sql.Tx, assets []core.AssetEntry) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assets (position, label, valuation, institution)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare assets insert: %w", err)
	}
	defer stmt.Close()
	for i, a := range assets {
		if _, err := stmt.ExecContext(ctx, i, a.Label, a.Valuation, a.Institution); err != nil {
			return fmt.Errorf("insert asset %q: %w", a.Label, err)
		}
	}
	return nil
}

// ReadSnapshot loads the stored snapshot inside a read transaction so the
// four tables come from the same replace.
func (r *SQLiteRepository) ReadSnapshot(ctx context.Context) (core.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	var s core.Snapshot
	var fetchedAt string
	err = tx.QueryRowContext(ctx, `SELECT source, fetched_at, rules FROM snapshot_meta WHERE id = 1`).
		Scan(&s.Source, &fetchedAt, &s.Rules)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, ports.ErrNoSnapshot
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("read snapshot meta: %w", err)
	}
	s.FetchedAt = parseTime(fetchedAt)

	if s.Members, err = readMembers(ctx, tx); err != nil {
		return core.Snapshot{}, err
	}
	if s.Ledger, err = readLedger(ctx, tx); err != nil {
		return core.Snapshot{}, err
	}
	if s.Assets, err = readAssets(ctx, tx); err != nil {
		return core.Snapshot{}, err
	}
	return s, nil
}

func readMembers(ctx context.Context, tx *sql.Tx) ([]core.Member, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT member_id, name, role, joined_on, credential
		FROM members ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.JoinedOn, &m.Credential); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func readLedger(ctx context.Context, tx *sql.Tx) ([]core.LedgerEntry, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT source_row, direction, category, counterparty, amount, occurred_at
		FROM ledger_entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		var e core.LedgerEntry
		var direction, occurredAt string
		if err := rows.Scan(&e.Row, &direction, &e.Category, &e.Counterparty, &e.Amount, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		e.Direction = core.ParseDirection(direction)
		e.OccurredAt = parseTime(occurredAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func readAssets(ctx context.Context, tx *sql.Tx) ([]core.AssetEntry, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT label, valuation, institution
		FROM assets ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var out []core.AssetEntry
	for rows.Next() {
		var a core.AssetEntry
		if err := rows.Scan(&a.Label, &a.Valuation, &a.Institution); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
