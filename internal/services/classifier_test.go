package services

import (
	"testing"

	"moim/internal/core"
)

func testTaxonomy() core.Taxonomy {
	return core.Taxonomy{
		Mode: core.MatchExact,
		Labels: map[core.Category][]string{
			core.Condolence: {"조의금"},
			core.Wreath:     {"조화"},
			core.Operating:  {"회의비"},
			core.Savings:    {"적금"},
		},
	}
}

func TestClassify(t *testing.T) {
	entries := []core.LedgerEntry{
		{Direction: core.Deposit, Counterparty: "A", Amount: 100000},
		{Direction: core.Deposit, Counterparty: "A", Amount: 30000},
		{Direction: core.Deposit, Counterparty: "B", Amount: 60000},
		{Direction: core.Deposit, Amount: 5000}, // interest, no member
		{Direction: core.Withdrawal, Category: "조의금", Counterparty: "A", Amount: 1000000},
		{Direction: core.Withdrawal, Category: "조화", Counterparty: "B", Amount: 120000},
		{Direction: core.Withdrawal, Category: "회의비", Amount: 80000},
		{Direction: core.Withdrawal, Category: "적금", Amount: 500000},
		{Direction: core.Withdrawal, Category: "", Amount: 7000},
		{Direction: core.Withdrawal, Category: "기타", Counterparty: "A", Amount: 3000},
		{Direction: core.DirectionUnknown, Counterparty: "A", Amount: 999},
	}
	before := append([]core.LedgerEntry(nil), entries...)

	p := Classify(entries, testTaxonomy())

	for i := range entries {
		if entries[i] != before[i] {
			t.Fatalf("input row %d mutated", i)
		}
	}
	if p.Entries != 10 {
		t.Errorf("entries = %d, want 10", p.Entries)
	}
	if p.DepositsByMember["A"] != 130000 || p.DepositsByMember["B"] != 60000 || len(p.DepositsByMember) != 2 {
		t.Errorf("deposits by member = %v", p.DepositsByMember)
	}
	if p.TotalDeposits != 195000 {
		t.Errorf("total deposits = %d", p.TotalDeposits)
	}
	if p.TotalWithdrawals != 1710000 {
		t.Errorf("total withdrawals = %d", p.TotalWithdrawals)
	}
	want := map[core.Category]int64{
		core.Condolence: 1000000,
		core.Wreath:     120000,
		core.Operating:  80000,
		core.Savings:    500000,
	}
	for c, v := range want {
		if p.WithdrawalsByCategory[c] != v {
			t.Errorf("withdrawals[%v] = %d, want %d", c, p.WithdrawalsByCategory[c], v)
		}
	}
	if _, ok := p.WithdrawalsByCategory[core.Uncategorized]; ok {
		t.Errorf("uncategorized rows must not get a bucket")
	}
	if got := p.MemberWithdrawals("A", core.Condolence); got != 1000000 {
		t.Errorf("A condolence = %d", got)
	}
	if got := p.MemberWithdrawals("B", core.Wreath); got != 120000 {
		t.Errorf("B wreath = %d", got)
	}
	if got := p.MemberWithdrawals("nobody", core.Wreath); got != 0 {
		t.Errorf("unknown member = %d", got)
	}
	if got := p.WithdrawalsExcludingSavings(); got != 1210000 {
		t.Errorf("withdrawals excluding savings = %d", got)
	}
}

func TestClassifyContainsFallback(t *testing.T) {
	tx := testTaxonomy()
	entries := []core.LedgerEntry{{Direction: core.Withdrawal, Category: "정기적금 이체", Amount: 300}}

	if p := Classify(entries, tx); p.WithdrawalsByCategory[core.Savings] != 0 {
		t.Fatalf("exact mode must not match substrings")
	}
	tx.Mode = core.MatchContains
	if p := Classify(entries, tx); p.WithdrawalsByCategory[core.Savings] != 300 {
		t.Fatalf("contains mode should match savings, got %v", p.WithdrawalsByCategory)
	}
}

func TestClassifyEmpty(t *testing.T) {
	p := Classify(nil, testTaxonomy())
	if p.Entries != 0 || p.TotalDeposits != 0 || p.TotalWithdrawals != 0 || len(p.DepositsByMember) != 0 {
		t.Fatalf("expected zero partitions, got %+v", p)
	}
	if p.WithdrawalsExcludingSavings() != 0 || p.MemberWithdrawals("A", core.Condolence) != 0 {
		t.Fatalf("helpers on empty partitions should be zero")
	}
}
