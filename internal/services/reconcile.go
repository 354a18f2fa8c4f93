package services

import (
	"moim/internal/core"
)

const (
	StatusOwed     Status = "owed"
	StatusSettled  Status = "settled"
	StatusOverpaid Status = "overpaid"
)

// Status summarises the sign of a member's balance.
type Status string

// StatusOf maps a balance to its status. Exactly zero is settled.
func StatusOf(balance int64) Status {
	switch {
	case balance > 0:
		return StatusOwed
	case balance < 0:
		return StatusOverpaid
	default:
		return StatusSettled
	}
}

type (
	// ReconciliationRecord is one member's row in the dues table.
	ReconciliationRecord struct {
		MemberID        string `json:"member_id"`
		Name            string `json:"name"`
		Role            string `json:"role,omitempty"`
		AmountDue       int64  `json:"amount_due"`
		AmountPaid      int64  `json:"amount_paid"`
		Balance         int64  `json:"balance"`
		Status          Status `json:"status"`
		CondolenceTotal int64  `json:"condolence_total"`
		CondolenceCount int64  `json:"condolence_count"`
		WreathTotal     int64  `json:"wreath_total"`
	}

	// RollUp is the column-wise sum of the dues table.
	RollUp struct {
		Members         int   `json:"members"`
		AmountDue       int64 `json:"amount_due"`
		AmountPaid      int64 `json:"amount_paid"`
		Balance         int64 `json:"balance"`
		CondolenceTotal int64 `json:"condolence_total"`
		CondolenceCount int64 `json:"condolence_count"`
		WreathTotal     int64 `json:"wreath_total"`
	}
)

// CondolenceCount converts a payout total into events. Payouts are assumed
// to be whole multiples of unit; partial payouts round down.
func CondolenceCount(total, unit int64) int64 {
	if total <= 0 || unit <= 0 {
		return 0
	}
	return total / unit
}

// Reconcile builds one record per member, in member order, plus the roll-up.
//
// Every member owes the same due amount. With no members or no classified
// ledger rows the result is empty and the roll-up is zero. When several
// members share a key, only the first is credited with that key's payments
// and payouts; the rest show zero paid so the roll-up never counts a deposit
// twice.
func Reconcile(members []core.Member, p Partitions, due, condolenceUnit int64) ([]ReconciliationRecord, RollUp) {
	var total RollUp
	if len(members) == 0 || p.Entries == 0 {
		return []ReconciliationRecord{}, total
	}

	records := make([]ReconciliationRecord, 0, len(members))
	credited := make(map[string]bool, len(members))
	for _, m := range members {
		key := m.Key()
		var paid, condolence, wreath int64
		if !credited[key] {
			credited[key] = true
			paid = p.DepositsByMember[key]
			condolence = p.MemberWithdrawals(key, core.Condolence)
			wreath = p.MemberWithdrawals(key, core.Wreath)
		}

		rec := ReconciliationRecord{
			MemberID:        key,
			Name:            m.Name,
			Role:            m.Role,
			AmountDue:       due,
			AmountPaid:      paid,
			Balance:         due - paid,
			CondolenceTotal: condolence,
			CondolenceCount: CondolenceCount(condolence, condolenceUnit),
			WreathTotal:     wreath,
		}
		rec.Status = StatusOf(rec.Balance)
		records = append(records, rec)

		total.Members++
		total.AmountDue += rec.AmountDue
		total.AmountPaid += rec.AmountPaid
		total.Balance += rec.Balance
		total.CondolenceTotal += rec.CondolenceTotal
		total.CondolenceCount += rec.CondolenceCount
		total.WreathTotal += rec.WreathTotal
	}
	return records, total
}
