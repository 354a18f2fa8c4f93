// Package memory serves a snapshot held in process, seeded from CSV files.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"moim/internal/core"
	"moim/internal/schema"
	ports "moim/internal/sheets"
)

// Seed file names inside the data directory.
const (
	MembersFile = "members.csv"
	LedgerFile  = "ledger.csv"
	AssetsFile  = "assets.csv"
	RulesFile   = "rules.md"
)

type Store struct {
	mu   sync.RWMutex
	snap core.Snapshot
}

var (
	_ ports.SnapshotReader = (*Store)(nil)
	_ ports.SnapshotWriter = (*Store)(nil)
)

// New wraps an already decoded snapshot.
func New(s core.Snapshot) *Store {
	if s.Source == "" {
		s.Source = "memory"
	}
	return &Store{snap: s}
}

// NewFromDir decodes the seed files in dir. Missing files are empty tables.
func NewFromDir(dir string, s *schema.Schema) (*Store, error) {
	var t ports.Tables
	var err error
	if t.Members, err = readCSV(filepath.Join(dir, MembersFile)); err != nil {
		return nil, err
	}
	if t.Ledger, err = readCSV(filepath.Join(dir, LedgerFile)); err != nil {
		return nil, err
	}
	if t.Assets, err = readCSV(filepath.Join(dir, AssetsFile)); err != nil {
		return nil, err
	}
	rules, err := os.ReadFile(filepath.Join(dir, RulesFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", RulesFile, err)
	}
	t.Rules = string(rules)

	snap, err := ports.Decode(s, t)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", dir, err)
	}
	snap.Source = "memory:" + dir
	snap.FetchedAt = time.Now()
	return New(snap), nil
}

// ReadSnapshot returns a copy; callers may not alias the stored slices.
func (s *Store) ReadSnapshot(_ context.Context) (core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.snap), nil
}

func (s *Store) ReplaceSnapshot(_ context.Context, snap core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = clone(snap)
	return nil
}

func clone(s core.Snapshot) core.Snapshot {
	s.Members = append([]core.Member(nil), s.Members...)
	s.Ledger = append([]core.LedgerEntry(nil), s.Ledger...)
	s.Assets = append([]core.AssetEntry(nil), s.Assets...)
	return s
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}
