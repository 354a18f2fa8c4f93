// Package sheets defines the snapshot ports and decodes raw tabular data
// (Sheets API values, CSV exports, seed files) into domain rows.
package sheets

import (
	"fmt"
	"strings"

	"moim/internal/core"
	"moim/internal/schema"
)

// Tables is the raw content of the four tabs. Each matrix carries its header
// row first.
type Tables struct {
	Members [][]string
	Ledger  [][]string
	Assets  [][]string
	Rules   string
}

// Decode binds each table to the schema and converts its rows. A table with
// no rows at all decodes to nothing; a header that lacks a required column
// fails with schema.ErrSchemaMismatch.
func Decode(s *schema.Schema, t Tables) (core.Snapshot, error) {
	members, err := decodeMembers(s.Members, t.Members)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("members: %w", err)
	}
	ledger, err := decodeLedger(s.Ledger, t.Ledger)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("ledger: %w", err)
	}
	assets, err := decodeAssets(s.Assets, t.Assets)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("assets: %w", err)
	}
	return core.Snapshot{
		Members: members,
		Ledger:  ledger,
		Assets:  assets,
		Rules:   strings.TrimSpace(t.Rules),
	}, nil
}

func decodeMembers(t schema.Table, rows [][]string) ([]core.Member, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	b, err := t.Bind(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]core.Member, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		m := core.Member{
			ID:         b.Get(row, schema.FieldID),
			Name:       b.Get(row, schema.FieldName),
			Role:       b.Get(row, schema.FieldRole),
			JoinedOn:   b.Get(row, schema.FieldJoinedOn),
			Credential: b.Get(row, schema.FieldCredential),
		}
		if m.Validate() != nil {
			continue
		}
		if m.ID == "" {
			m.ID = m.Name
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeLedger(l schema.Ledger, rows [][]string) ([]core.LedgerEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	b, err := l.Bind(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]core.LedgerEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, core.LedgerEntry{
			Row:          i + 1,
			Direction:    l.Direction(b.Get(row, schema.FieldDirection)),
			Category:     b.Get(row, schema.FieldCategory),
			Counterparty: b.Get(row, schema.FieldCounterpart),
			Amount:       core.ParseAmount(b.Get(row, schema.FieldAmount)),
			OccurredAt:   l.ParseTime(b.Get(row, schema.FieldOccurredAt)),
		})
	}
	return out, nil
}

func decodeAssets(t schema.Table, rows [][]string) ([]core.AssetEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	b, err := t.Bind(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]core.AssetEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		label := b.Get(row, schema.FieldLabel)
		if label == "" {
			continue
		}
		out = append(out, core.AssetEntry{
			Label:       label,
			Valuation:   core.ParseAmount(b.Get(row, schema.FieldValuation)),
			Institution: b.Get(row, schema.FieldInstitution),
		})
	}
	return out, nil
}

// RulesText joins a single-column tab (or any matrix) into paragraphs, one
// non-blank row per line.
func RulesText(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, 0, len(row))
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				parts = append(parts, c)
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, " "))
		}
	}
	return strings.Join(lines, "\n")
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
