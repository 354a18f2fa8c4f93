package services

import (
	"fmt"
	"strings"

	"moim/internal/core"
)

type (
	// BalanceReview compares the cash the ledger says the dues account should
	// hold with the balance reported on the assets sheet.
	BalanceReview struct {
		Expected         int64  `json:"expected"`
		Reported         int64  `json:"reported"`
		LedgerMinusAsset int64  `json:"ledger_minus_asset_difference"`
		ReportedFound    bool   `json:"reported_found"`
		ReportedLabel    string `json:"reported_label,omitempty"`
	}

	// InterestReport is the gain on savings: valuation minus principal.
	InterestReport struct {
		PrincipalContributed int64 `json:"principal_contributed"`
		CurrentValuation     int64 `json:"current_valuation"`
		Interest             int64 `json:"interest"`
	}
)

// ReviewBalance computes expected = deposits - withdrawals (excluding
// savings) and the signed ledger-minus-asset difference.
func ReviewBalance(totalDeposits, withdrawalsExcludingSavings, reported int64) BalanceReview {
	expected := totalDeposits - withdrawalsExcludingSavings
	return BalanceReview{
		Expected:         expected,
		Reported:         reported,
		LedgerMinusAsset: expected - reported,
	}
}

// ReviewInterest reports interest without clamping; a loss is negative.
func ReviewInterest(savingsWithdrawals, savingsAssets int64) InterestReport {
	return InterestReport{
		PrincipalContributed: savingsWithdrawals,
		CurrentValuation:     savingsAssets,
		Interest:             savingsAssets - savingsWithdrawals,
	}
}

func labelHas(label, tag string) bool {
	tag = strings.TrimSpace(tag)
	return tag != "" && strings.Contains(label, tag)
}

// FindDuesBalance returns the first asset whose label contains tag.
// A missing row or extra matches are reported as issues.
func FindDuesBalance(assets []core.AssetEntry, tag string) (core.AssetEntry, bool, []core.Issue) {
	var (
		found  core.AssetEntry
		ok     bool
		issues []core.Issue
	)
	for i, a := range assets {
		if !labelHas(a.Label, tag) {
			continue
		}
		if ok {
			issues = append(issues, core.Issue{
				Kind:   core.IssueAmbiguousAsset,
				Table:  "assets",
				Row:    i + 1,
				Detail: fmt.Sprintf("%q also matches %q; using %q", a.Label, tag, found.Label),
			})
			continue
		}
		found, ok = a, true
	}
	if !ok {
		issues = append(issues, core.Issue{
			Kind:   core.IssueMissingAsset,
			Table:  "assets",
			Detail: fmt.Sprintf("no asset label contains %q; reported balance taken as 0", tag),
		})
	}
	return found, ok, issues
}

// SumAssetsTagged totals the valuations of assets whose label contains tag.
func SumAssetsTagged(assets []core.AssetEntry, tag string) int64 {
	var total int64
	for _, a := range assets {
		if labelHas(a.Label, tag) {
			total += a.Valuation
		}
	}
	return total
}
