package core

import (
	"errors"
	"strings"
	"time"
)

const (
	DirectionUnknown Direction = iota
	Deposit
	Withdrawal
)

type (
	// Direction tells whether a ledger row brought cash in or sent it out.
	Direction int

	Member struct {
		ID         string // Stable key; falls back to Name when the sheet has no id column
		Name       string
		Role       string
		JoinedOn   string // Display-only, kept as written in the sheet
		Credential string
	}

	LedgerEntry struct {
		Row          int // 1-based data row in the source table
		Direction    Direction
		Category     string // Free-text label as written in the sheet
		Counterparty string // Member name as written in the sheet
		MemberID     string // Filled by ResolveLedger
		Amount       int64
		OccurredAt   time.Time
	}

	AssetEntry struct {
		Label       string
		Valuation   int64
		Institution string
	}

	// Snapshot is one consistent read of every source table.
	Snapshot struct {
		Members   []Member
		Ledger    []LedgerEntry
		Assets    []AssetEntry
		Rules     string
		Source    string
		FetchedAt time.Time
	}
)

var (
	ErrEmptyName     = errors.New("empty member name")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")
)

func (d Direction) String() string {
	switch d {
	case Deposit:
		return "deposit"
	case Withdrawal:
		return "withdrawal"
	default:
		return "unknown"
	}
}

// MarshalText keeps JSON output readable.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDirection maps a canonical direction name back to a Direction.
// Sheet labels ("입금", "지출", ...) are mapped by the table schema, not here.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return Deposit
	case "withdrawal":
		return Withdrawal
	default:
		return DirectionUnknown
	}
}

// Key returns the identifier used to join ledger rows to this member.
func (m Member) Key() string {
	if id := strings.TrimSpace(m.ID); id != "" {
		return id
	}
	return strings.TrimSpace(m.Name)
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// MemberKey returns the resolved member id, or the raw counterparty name
// when the row has not been resolved.
func (e LedgerEntry) MemberKey() string {
	if e.MemberID != "" {
		return e.MemberID
	}
	return strings.TrimSpace(e.Counterparty)
}

// Counts is a compact size summary used in logs and refresh messages.
func (s Snapshot) Counts() (members, ledger, assets int) {
	return len(s.Members), len(s.Ledger), len(s.Assets)
}
