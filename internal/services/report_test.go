package services

import (
	"testing"
	"time"

	"moim/internal/core"
)

func testReconciler() Reconciler {
	return Reconciler{
		Policy: core.DuesPolicy{
			Epoch:       core.Month{Year: 2020, Month: 2},
			InitialFee:  100000,
			MonthlyRate: 30000,
			Reference:   core.ReferenceCurrent,
		},
		Taxonomy:       testTaxonomy(),
		DuesAccountTag: "회비통장",
		SavingsTag:     "적금",
		CondolenceUnit: 1000000,
	}
}

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		Source: "test",
		Members: []core.Member{
			{Name: "Kim", Role: "회장", Credential: "1234"},
			{Name: "Lee", Credential: "5678"},
		},
		Ledger: []core.LedgerEntry{
			{Row: 1, Direction: core.Deposit, Counterparty: "Kim", Amount: 130000},
			{Row: 2, Direction: core.Deposit, Counterparty: "Lee", Amount: 200000},
			{Row: 3, Direction: core.Deposit, Counterparty: "Park", Amount: 50000},
			{Row: 4, Direction: core.Withdrawal, Category: "조의금", Counterparty: "Lee", Amount: 1000000},
			{Row: 5, Direction: core.Withdrawal, Category: "적금", Amount: 1000000},
			{Row: 6, Direction: core.Withdrawal, Category: "회의비", Amount: 80000},
		},
		Assets: []core.AssetEntry{
			{Label: "회비통장", Valuation: 0},
			{Label: "정기적금", Valuation: 1_250_000},
		},
	}
}

func TestBuildReport(t *testing.T) {
	now := time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)
	rep := testReconciler().BuildReport(testSnapshot(), now)

	if rep.ReferenceMonth != "2020-03" || rep.MonthsElapsed != 1 || rep.DuePerMember != 130000 {
		t.Fatalf("header = %s %d %d", rep.ReferenceMonth, rep.MonthsElapsed, rep.DuePerMember)
	}
	kim, ok := rep.Record("Kim")
	if !ok || kim.Status != StatusSettled || kim.Balance != 0 || kim.Role != "회장" {
		t.Fatalf("kim = %+v", kim)
	}
	lee, _ := rep.Record("Lee")
	if lee.Status != StatusOverpaid || lee.Balance != -70000 || lee.CondolenceCount != 1 {
		t.Fatalf("lee = %+v", lee)
	}
	// Park is not a member: his deposit reaches the balance review but no record.
	if _, ok := rep.Record("Park"); ok {
		t.Fatalf("unresolved name must not get a record")
	}
	if rep.Totals.AmountPaid != 330000 {
		t.Fatalf("total paid = %d", rep.Totals.AmountPaid)
	}
	if rep.Balance.Expected != 380000-1080000 {
		t.Fatalf("expected balance = %d", rep.Balance.Expected)
	}
	if !rep.Balance.ReportedFound || rep.Balance.ReportedLabel != "회비통장" {
		t.Fatalf("dues row not found: %+v", rep.Balance)
	}
	if rep.Interest.Interest != 250000 {
		t.Fatalf("interest = %+v", rep.Interest)
	}
	var unresolved int
	for _, is := range rep.Issues {
		if is.Kind == core.IssueUnresolvedName {
			unresolved++
		}
	}
	if unresolved != 1 {
		t.Fatalf("issues = %v", rep.Issues)
	}
}

func TestBuildReportReferencesAgree(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	for _, ref := range []core.MonthReference{core.ReferenceCurrent, core.ReferencePrevious} {
		r := testReconciler()
		r.Policy.Reference = ref
		rep := r.BuildReport(testSnapshot(), now)
		for _, rec := range rep.Members {
			if rec.AmountDue != rep.DuePerMember {
				t.Fatalf("%s: member due %d != report due %d", ref, rec.AmountDue, rep.DuePerMember)
			}
		}
		if rep.Totals.AmountDue != rep.DuePerMember*int64(len(rep.Members)) {
			t.Fatalf("%s: aggregate due disagrees with per-member due", ref)
		}
	}
}

func TestBuildReportEmptySnapshot(t *testing.T) {
	rep := testReconciler().BuildReport(core.Snapshot{}, time.Now())
	if len(rep.Members) != 0 || rep.Totals != (RollUp{}) {
		t.Fatalf("members/totals = %v %+v", rep.Members, rep.Totals)
	}
	if rep.Balance.Expected != 0 || rep.Balance.LedgerMinusAsset != 0 || rep.Balance.ReportedFound {
		t.Fatalf("balance = %+v", rep.Balance)
	}
	if rep.Interest != (InterestReport{}) {
		t.Fatalf("interest = %+v", rep.Interest)
	}
	if len(rep.Issues) == 0 {
		t.Fatalf("empty tables should be reported")
	}
}

func TestFilterMembers(t *testing.T) {
	rep := Report{Members: []ReconciliationRecord{{Name: "Kim Minsu"}, {Name: "Lee"}, {Name: "kimchi"}}}
	if got := rep.FilterMembers(""); len(got) != 3 {
		t.Fatalf("empty query = %v", got)
	}
	if got := rep.FilterMembers(" KIM "); len(got) != 2 {
		t.Fatalf("kim query = %v", got)
	}
	if got := rep.FilterMembers("zzz"); got == nil || len(got) != 0 {
		t.Fatalf("no match should be empty, got %v", got)
	}
}

func TestAuthenticate(t *testing.T) {
	members := testSnapshot().Members
	if m, ok := Authenticate(members, " Kim ", "1234"); !ok || m.Name != "Kim" {
		t.Fatalf("expected Kim, got %v %v", m, ok)
	}
	for _, tc := range [][2]string{{"Kim", "5678"}, {"Kim", ""}, {"", "1234"}, {"Choi", "1234"}} {
		if _, ok := Authenticate(members, tc[0], tc[1]); ok {
			t.Fatalf("expected rejection for %v", tc)
		}
	}
	if _, ok := Authenticate([]core.Member{{Name: "Open"}}, "Open", "x"); ok {
		t.Fatalf("members without a credential can never match")
	}
}
