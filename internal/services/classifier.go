// Package services turns a snapshot of the club's sheets into reports.
//
// Every function here is a pure transformation over its inputs: no I/O, no
// shared state, and no errors. Bad input degrades to zeros and is surfaced
// through core.Issue values instead.
package services

import (
	"moim/internal/core"
)

// Partitions is the classified view of a ledger.
type Partitions struct {
	// Entries counts rows with a known direction.
	Entries int

	DepositsByMember            map[string]int64
	WithdrawalsByCategory       map[core.Category]int64
	WithdrawalsByMemberCategory map[string]map[core.Category]int64

	TotalDeposits    int64
	TotalWithdrawals int64
}

// Classify buckets ledger rows by direction, member and category.
//
// Deposits without a member key still count towards TotalDeposits.
// Uncategorized withdrawals count towards TotalWithdrawals but never enter a
// category bucket.
func Classify(entries []core.LedgerEntry, tx core.Taxonomy) Partitions {
	p := Partitions{
		DepositsByMember:            map[string]int64{},
		WithdrawalsByCategory:       map[core.Category]int64{},
		WithdrawalsByMemberCategory: map[string]map[core.Category]int64{},
	}
	for _, e := range entries {
		key := e.MemberKey()
		switch e.Direction {
		case core.Deposit:
			p.Entries++
			p.TotalDeposits += e.Amount
			if key != "" {
				p.DepositsByMember[key] += e.Amount
			}
		case core.Withdrawal:
			p.Entries++
			p.TotalWithdrawals += e.Amount
			cat := tx.Classify(e.Category)
			if cat == core.Uncategorized {
				continue
			}
			p.WithdrawalsByCategory[cat] += e.Amount
			if key == "" {
				continue
			}
			byCat, ok := p.WithdrawalsByMemberCategory[key]
			if !ok {
				byCat = map[core.Category]int64{}
				p.WithdrawalsByMemberCategory[key] = byCat
			}
			byCat[cat] += e.Amount
		}
	}
	return p
}

// MemberWithdrawals returns the withdrawals paid to one member in a category.
func (p Partitions) MemberWithdrawals(key string, c core.Category) int64 {
	return p.WithdrawalsByMemberCategory[key][c]
}

// WithdrawalsExcludingSavings is every withdrawal that left the dues account
// for good; savings transfers stay club money.
func (p Partitions) WithdrawalsExcludingSavings() int64 {
	return p.TotalWithdrawals - p.WithdrawalsByCategory[core.Savings]
}

// MemberDeposits sums every member bucket.
func (p Partitions) MemberDeposits() int64 {
	var total int64
	for _, v := range p.DepositsByMember {
		total += v
	}
	return total
}
