// Package core provides money parsing and handling utilities.
//
// Amounts are tax-inclusive decimals in the ledger's home currency (ZAR).
// Parsing is tolerant of currency symbols, thousands separators and
// non-breaking spaces typed into spreadsheets.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes rendered amounts.
const CurrencySymbol = "R"

// cleanNumeric keeps only digits, '.' and '-'.
func cleanNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseAmount converts a currency string to a decimal.
//
// Every character other than digits, dot and minus is discarded first, so
// "R 1 250.50" and "1,250.50" both parse as 1250.50. A string with nothing
// numeric left, or one that is still malformed, yields ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("R1,250.50") -> 1250.50, nil
//	ParseAmount("abc")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := cleanNumeric(s)
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmountOrZero is ParseAmount for optional columns: blanks and
// garbage read as zero.
func ParseAmountOrZero(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MaxCovers caps ParseCovers.
const MaxCovers = 1_000_000

// ParseCovers reads a guest count, ignoring every non-digit character.
// An empty result is zero; larger counts saturate at MaxCovers.
func ParseCovers(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		n = n*10 + int(r-'0')
		if n >= MaxCovers {
			return MaxCovers
		}
	}
	return n
}

// FormatAmount renders two decimal places without a symbol, as written to CSV.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatCurrency renders an amount for display, e.g. "R 1250.50".
func FormatCurrency(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + CurrencySymbol + " " + d.Abs().StringFixed(2)
	}
	return CurrencySymbol + " " + d.StringFixed(2)
}
