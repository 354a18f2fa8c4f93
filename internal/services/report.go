package services

import (
	"crypto/subtle"
	"strings"
	"time"

	"moim/internal/core"
)

type (
	// Reconciler carries the policy needed to turn a snapshot into a report.
	Reconciler struct {
		Policy         core.DuesPolicy
		Taxonomy       core.Taxonomy
		DuesAccountTag string
		SavingsTag     string
		CondolenceUnit int64
	}

	// Report is everything the dashboard shows for one reference month.
	Report struct {
		ReferenceMonth string                 `json:"reference_month"`
		MonthsElapsed  int                    `json:"months_elapsed"`
		DuePerMember   int64                  `json:"due_per_member"`
		GeneratedAt    time.Time              `json:"generated_at"`
		Source         string                 `json:"source,omitempty"`
		FetchedAt      time.Time              `json:"fetched_at"`
		Members        []ReconciliationRecord `json:"members"`
		Totals         RollUp                 `json:"totals"`
		Balance        BalanceReview          `json:"balance"`
		Interest       InterestReport         `json:"interest"`
		Issues         []core.Issue           `json:"issues"`
	}
)

// BuildReport runs resolve, classify, reconcile and both reviews over one
// snapshot. The snapshot is not modified.
func (r Reconciler) BuildReport(s core.Snapshot, now time.Time) Report {
	ledger, issues := core.ResolveLedger(s.Members, s.Ledger)
	if len(s.Ledger) == 0 {
		issues = append(issues, core.Issue{Kind: core.IssueEmptyTable, Table: "ledger", Detail: "ledger has no rows; member table left empty"})
	}
	if len(s.Members) == 0 {
		issues = append(issues, core.Issue{Kind: core.IssueEmptyTable, Table: "members", Detail: "member table has no rows"})
	}

	p := Classify(ledger, r.Taxonomy)
	due := r.Policy.Due(now)
	records, totals := Reconcile(s.Members, p, due, r.CondolenceUnit)

	duesRow, found, assetIssues := FindDuesBalance(s.Assets, r.DuesAccountTag)
	issues = append(issues, assetIssues...)
	balance := ReviewBalance(p.TotalDeposits, p.WithdrawalsExcludingSavings(), duesRow.Valuation)
	balance.ReportedFound = found
	balance.ReportedLabel = duesRow.Label

	interest := ReviewInterest(p.WithdrawalsByCategory[core.Savings], SumAssetsTagged(s.Assets, r.SavingsTag))

	if issues == nil {
		issues = []core.Issue{}
	}
	return Report{
		ReferenceMonth: r.Policy.ReferenceMonth(now).String(),
		MonthsElapsed:  r.Policy.MonthsElapsed(now),
		DuePerMember:   due,
		GeneratedAt:    now,
		Source:         s.Source,
		FetchedAt:      s.FetchedAt,
		Members:        records,
		Totals:         totals,
		Balance:        balance,
		Interest:       interest,
		Issues:         issues,
	}
}

// Record returns the row for a member id.
func (rep Report) Record(memberID string) (ReconciliationRecord, bool) {
	for _, rec := range rep.Members {
		if rec.MemberID == memberID {
			return rec, true
		}
	}
	return ReconciliationRecord{}, false
}

// FilterMembers returns records whose name contains q (case-insensitive).
// An empty query returns every record.
func (rep Report) FilterMembers(q string) []ReconciliationRecord {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return rep.Members
	}
	out := make([]ReconciliationRecord, 0)
	for _, rec := range rep.Members {
		if strings.Contains(strings.ToLower(rec.Name), q) {
			out = append(out, rec)
		}
	}
	return out
}

// Authenticate finds the member with this name and credential by a linear
// scan. It only selects whose row to show; it is not access control.
func Authenticate(members []core.Member, name, credential string) (core.Member, bool) {
	name = strings.TrimSpace(name)
	credential = strings.TrimSpace(credential)
	if name == "" || credential == "" {
		return core.Member{}, false
	}
	for _, m := range members {
		if strings.TrimSpace(m.Name) != name {
			continue
		}
		stored := strings.TrimSpace(m.Credential)
		if stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(credential)) == 1 {
			return m, true
		}
	}
	return core.Member{}, false
}
