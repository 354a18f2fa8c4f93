package core

import (
	"errors"
	"testing"
	"time"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.UTC)
}

func TestMonthsElapsed(t *testing.T) {
	epoch := date(2020, 2, 1)
	cases := []struct {
		now  time.Time
		want int
	}{
		{date(2020, 2, 1), 0},
		{date(2020, 2, 29), 0},
		{date(2020, 3, 1), 1},
		{date(2021, 1, 15), 11},
		{date(2021, 2, 1), 12},
		{date(2024, 5, 31), 51},
		{date(2019, 12, 31), 0}, // before epoch clamps
		{date(2000, 1, 1), 0},
	}
	for _, tc := range cases {
		if got := MonthsElapsed(tc.now, epoch); got != tc.want {
			t.Errorf("MonthsElapsed(%s) = %d, want %d", tc.now.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestMonthsElapsedMonotonic(t *testing.T) {
	epoch := date(2020, 2, 1)
	prev := -1
	for now := date(2018, 1, 1); now.Before(date(2030, 1, 1)); now = now.AddDate(0, 0, 9) {
		got := MonthsElapsed(now, epoch)
		if got < prev {
			t.Fatalf("months went backwards at %s: %d < %d", now.Format("2006-01-02"), got, prev)
		}
		if got < 0 {
			t.Fatalf("negative months at %s", now)
		}
		prev = got
	}
}

func TestDuesPolicyReferences(t *testing.T) {
	base := DuesPolicy{Epoch: Month{2020, 2}, InitialFee: 100000, MonthlyRate: 30000}
	now := date(2020, 5, 10)

	current := base
	current.Reference = ReferenceCurrent
	if got := current.MonthsElapsed(now); got != 3 {
		t.Fatalf("current months = %d, want 3", got)
	}
	if got := current.Due(now); got != 190000 {
		t.Fatalf("current due = %d, want 190000", got)
	}

	previous := base
	previous.Reference = ReferencePrevious
	if got := previous.MonthsElapsed(now); got != 2 {
		t.Fatalf("previous months = %d, want 2", got)
	}
	if got := previous.Due(now); got != 160000 {
		t.Fatalf("previous due = %d, want 160000", got)
	}

	// In the epoch month the previous reference lands before the epoch and clamps.
	if got := previous.Due(date(2020, 2, 3)); got != 100000 {
		t.Fatalf("previous due at epoch = %d, want initial fee", got)
	}
	// January rolls back into December of the prior year.
	if got := previous.ReferenceMonth(date(2021, 1, 5)); got != (Month{2020, 12}) {
		t.Fatalf("reference month = %v", got)
	}
}

func TestParseMonth(t *testing.T) {
	for _, in := range []string{"2020-02", "2020/2", " 2020.02 "} {
		m, err := ParseMonth(in)
		if err != nil || m != (Month{2020, 2}) {
			t.Fatalf("ParseMonth(%q) = %v, %v", in, m, err)
		}
	}
	for _, in := range []string{"", "2020", "2020-13", "2020-00", "abcd-01", "2020-xx"} {
		if _, err := ParseMonth(in); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("ParseMonth(%q) expected ErrInvalidMonth, got %v", in, err)
		}
	}
	if s := (Month{2020, 2}).String(); s != "2020-02" {
		t.Fatalf("String() = %q", s)
	}
}

func TestDuesPolicyValidate(t *testing.T) {
	good := DuesPolicy{Epoch: Month{2020, 2}, InitialFee: 100000, MonthlyRate: 30000, Reference: ReferenceCurrent}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []DuesPolicy{
		{Epoch: Month{2020, 0}, Reference: ReferenceCurrent},
		{Epoch: Month{2020, 2}, InitialFee: -1, Reference: ReferenceCurrent},
		{Epoch: Month{2020, 2}, MonthlyRate: -1, Reference: ReferenceCurrent},
		{Epoch: Month{2020, 2}, Reference: "last"},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
