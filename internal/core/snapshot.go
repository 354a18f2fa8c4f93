package core

import (
	"fmt"
	"strings"
)

const (
	IssueUnresolvedName  IssueKind = "unresolved_name"
	IssueDuplicateMember IssueKind = "duplicate_member"
	IssueUnknownDirect   IssueKind = "unknown_direction"
	IssueNegativeAmount  IssueKind = "negative_amount"
	IssueAmbiguousAsset  IssueKind = "ambiguous_asset"
	IssueMissingAsset    IssueKind = "missing_asset"
	IssueEmptyTable      IssueKind = "empty_table"
)

type (
	IssueKind string

	// Issue is a data-quality finding surfaced next to a report instead of
	// being silently folded into a zero.
	Issue struct {
		Kind   IssueKind `json:"kind"`
		Table  string    `json:"table"`
		Row    int       `json:"row,omitempty"`
		Detail string    `json:"detail"`
	}
)

func (i Issue) String() string {
	if i.Row > 0 {
		return fmt.Sprintf("%s %s row %d: %s", i.Table, i.Kind, i.Row, i.Detail)
	}
	return fmt.Sprintf("%s %s: %s", i.Table, i.Kind, i.Detail)
}

// ResolveLedger joins every ledger row to a member id by display name.
//
// The input slice is not modified. Rows whose counterparty matches no member
// keep an empty MemberID and produce an IssueUnresolvedName; rows without a
// counterparty (operating costs, savings transfers) are not reported. When
// two members share a name the first one wins and the clash is reported.
func ResolveLedger(members []Member, ledger []LedgerEntry) ([]LedgerEntry, []Issue) {
	var issues []Issue

	byName := make(map[string]string, len(members))
	for _, m := range members {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		if prev, ok := byName[name]; ok {
			issues = append(issues, Issue{
				Kind:   IssueDuplicateMember,
				Table:  "members",
				Detail: fmt.Sprintf("name %q used by %q and %q", name, prev, m.Key()),
			})
			continue
		}
		byName[name] = m.Key()
	}

	out := make([]LedgerEntry, len(ledger))
	for i, e := range ledger {
		if e.Direction == DirectionUnknown {
			issues = append(issues, Issue{
				Kind:   IssueUnknownDirect,
				Table:  "ledger",
				Row:    e.Row,
				Detail: fmt.Sprintf("row ignored, amount %d", e.Amount),
			})
		}
		if e.Amount < 0 {
			issues = append(issues, Issue{
				Kind:   IssueNegativeAmount,
				Table:  "ledger",
				Row:    e.Row,
				Detail: fmt.Sprintf("amount %d counted as %d", e.Amount, -e.Amount),
			})
			e.Amount = -e.Amount
		}
		name := strings.TrimSpace(e.Counterparty)
		e.MemberID = ""
		if name != "" {
			if id, ok := byName[name]; ok {
				e.MemberID = id
			} else {
				issues = append(issues, Issue{
					Kind:   IssueUnresolvedName,
					Table:  "ledger",
					Row:    e.Row,
					Detail: fmt.Sprintf("no member named %q", name),
				})
			}
		}
		out[i] = e
	}
	return out, issues
}
