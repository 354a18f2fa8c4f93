package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// ReferenceCurrent counts months up to the current month.
	ReferenceCurrent MonthReference = "current"
	// ReferencePrevious counts months up to the month before now.
	ReferencePrevious MonthReference = "previous"
)

type (
	// MonthReference selects which month "now" is measured from.
	MonthReference string

	// Month is a calendar month without a day component.
	Month struct {
		Year  int
		Month int // 1-12
	}

	// DuesPolicy derives the cumulative dues obligation from the clock.
	DuesPolicy struct {
		Epoch       Month
		InitialFee  int64
		MonthlyRate int64
		Reference   MonthReference
	}
)

func (r MonthReference) IsValid() bool {
	switch r {
	case ReferenceCurrent, ReferencePrevious:
		return true
	default:
		return false
	}
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonth parses "2006-01" (also accepting "2006/01" and "2006.01").
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "-/.")
	if sep <= 0 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	y, err := strconv.Atoi(s[:sep])
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	m, err := strconv.Atoi(s[sep+1:])
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	mo := Month{Year: y, Month: m}
	if err := mo.Validate(); err != nil {
		return Month{}, err
	}
	return mo, nil
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidMonth, m.Month)
	}
	if m.Year < 1 {
		return fmt.Errorf("%w: year %d", ErrInvalidMonth, m.Year)
	}
	return nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Prev returns the month before m.
func (m Month) Prev() Month {
	if m.Month == 1 {
		return Month{Year: m.Year - 1, Month: 12}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// index numbers months linearly so differences are plain subtraction.
func (m Month) index() int {
	return m.Year*12 + (m.Month - 1)
}

// MonthsBetween returns whole months from epoch to m, never below zero.
func MonthsBetween(m, epoch Month) int {
	n := m.index() - epoch.index()
	if n < 0 {
		return 0
	}
	return n
}

// MonthsElapsed is MonthsBetween for two instants.
func MonthsElapsed(now, epoch time.Time) int {
	return MonthsBetween(MonthOf(now), MonthOf(epoch))
}

// ReferenceMonth applies the configured reference to now.
func (p DuesPolicy) ReferenceMonth(now time.Time) Month {
	m := MonthOf(now)
	if p.Reference == ReferencePrevious {
		return m.Prev()
	}
	return m
}

// MonthsElapsed counts billable months at now.
func (p DuesPolicy) MonthsElapsed(now time.Time) int {
	return MonthsBetween(p.ReferenceMonth(now), p.Epoch)
}

// Due returns initial fee plus one monthly rate per elapsed month.
func (p DuesPolicy) Due(now time.Time) int64 {
	return p.InitialFee + int64(p.MonthsElapsed(now))*p.MonthlyRate
}

func (p DuesPolicy) Validate() error {
	if err := p.Epoch.Validate(); err != nil {
		return fmt.Errorf("dues epoch: %w", err)
	}
	if p.InitialFee < 0 {
		return fmt.Errorf("%w: initial fee %d", ErrInvalidAmount, p.InitialFee)
	}
	if p.MonthlyRate < 0 {
		return fmt.Errorf("%w: monthly rate %d", ErrInvalidAmount, p.MonthlyRate)
	}
	if !p.Reference.IsValid() {
		return fmt.Errorf("invalid month reference %q", p.Reference)
	}
	return nil
}
