// Package core holds the membership-ledger domain types and the pure
// helpers every other package builds on.
//
// This file parses the amount cells of hand-maintained spreadsheets into
// whole currency units.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// amountNoise lists the decorations seen around amounts in the sheets.
var amountNoise = strings.NewReplacer(
	",", "",
	" ", "",
	"\u00a0", "",
	"원", "",
	"₩", "",
	"KRW", "",
	"krw", "",
)

// Bounds outside which an amount cell is treated as unreadable. Exponents are
// checked before any rescaling so "1e9999999" is rejected without work.
const (
	maxAmountText     = 64
	maxAmountExponent = 18
	minAmountExponent = -64
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a cell value into whole currency units.
//
// It accepts numbers as returned by the Sheets API and text such as
// " 1,200,000 ", "30000원" or "1,234.9". Fractions are truncated toward zero.
// Anything it cannot read (nil, blank, words) yields 0: a single bad cell
// must never abort a report.
//
// Examples:
//
//	ParseAmount("1,200,000") -> 1200000
//	ParseAmount(30000.0)     -> 30000
//	ParseAmount("n/a")       -> 0
func ParseAmount(raw any) int64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float32:
		return parseAmountFloat(float64(v))
	case float64:
		return parseAmountFloat(v)
	case json.Number:
		return parseAmountText(v.String())
	case decimal.Decimal:
		return decimalAmount(v)
	case string:
		return parseAmountText(v)
	default:
		return 0
	}
}

func parseAmountFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return decimalAmount(decimal.NewFromFloat(f))
}

func parseAmountText(s string) int64 {
	s = amountNoise.Replace(strings.TrimSpace(s))
	if s == "" || len(s) > maxAmountText {
		return 0
	}
	// Fast path for the common clean-integer case
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return decimalAmount(d)
}

// decimalAmount truncates d to an int64, or returns 0 when d does not fit.
func decimalAmount(d decimal.Decimal) int64 {
	if exp := d.Exponent(); exp > maxAmountExponent || exp < minAmountExponent {
		return 0
	}
	if d.Abs().GreaterThan(maxAmount) {
		return 0
	}
	return d.IntPart()
}

// FormatWon renders an amount with thousands separators, e.g. "1,234,000원".
func FormatWon(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString("원")
	return b.String()
}
