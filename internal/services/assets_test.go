package services

import (
	"testing"

	"moim/internal/core"
)

func TestReviewInterest(t *testing.T) {
	got := ReviewInterest(1_000_000, 1_250_000)
	if got.Interest != 250_000 || got.PrincipalContributed != 1_000_000 || got.CurrentValuation != 1_250_000 {
		t.Fatalf("interest report = %+v", got)
	}
	if loss := ReviewInterest(1_000_000, 900_000); loss.Interest != -100_000 {
		t.Fatalf("loss must stay negative, got %d", loss.Interest)
	}
	if zero := ReviewInterest(0, 0); zero != (InterestReport{}) {
		t.Fatalf("empty inputs = %+v", zero)
	}
}

func TestReviewBalance(t *testing.T) {
	got := ReviewBalance(5_000_000, 1_200_000, 3_800_000)
	if got.Expected != 3_800_000 || got.LedgerMinusAsset != 0 {
		t.Fatalf("balance review = %+v", got)
	}
	short := ReviewBalance(5_000_000, 1_200_000, 3_500_000)
	if short.LedgerMinusAsset != 300_000 {
		t.Fatalf("ledger above asset should be positive, got %d", short.LedgerMinusAsset)
	}
	missing := ReviewBalance(5_000_000, 1_200_000, 0)
	if missing.LedgerMinusAsset != missing.Expected {
		t.Fatalf("missing asset must surface the full expected balance, got %+v", missing)
	}
}

func TestFindDuesBalance(t *testing.T) {
	assets := []core.AssetEntry{
		{Label: "정기적금", Valuation: 1_250_000},
		{Label: "회비통장", Valuation: 3_800_000, Institution: "농협"},
		{Label: "회비통장(구)", Valuation: 10},
	}
	row, ok, issues := FindDuesBalance(assets, "회비통장")
	if !ok || row.Valuation != 3_800_000 {
		t.Fatalf("found %v %+v", ok, row)
	}
	if len(issues) != 1 || issues[0].Kind != core.IssueAmbiguousAsset || issues[0].Row != 3 {
		t.Fatalf("issues = %v", issues)
	}

	row, ok, issues = FindDuesBalance(assets[:1], "회비통장")
	if ok || row.Valuation != 0 {
		t.Fatalf("expected no match, got %+v", row)
	}
	if len(issues) != 1 || issues[0].Kind != core.IssueMissingAsset {
		t.Fatalf("issues = %v", issues)
	}

	if _, ok, _ := FindDuesBalance(assets, " "); ok {
		t.Fatalf("blank tag must match nothing")
	}
	if _, ok, _ := FindDuesBalance(nil, "회비통장"); ok {
		t.Fatalf("empty assets must match nothing")
	}
}

func TestSumAssetsTagged(t *testing.T) {
	assets := []core.AssetEntry{
		{Label: "정기적금 A", Valuation: 700_000},
		{Label: "적금 B", Valuation: 550_000},
		{Label: "회비통장", Valuation: 3_800_000},
	}
	if got := SumAssetsTagged(assets, "적금"); got != 1_250_000 {
		t.Fatalf("savings total = %d", got)
	}
	if got := SumAssetsTagged(nil, "적금"); got != 0 {
		t.Fatalf("empty total = %d", got)
	}
}
