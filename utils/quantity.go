package utils

import (
	"github.com/shopspring/decimal"
)

// FormatQuantity renders a quantity with its unit for display and log lines.
// Trailing zeros beyond the fourth decimal place are dropped.
func FormatQuantity(qty decimal.Decimal, unit string) string {
	s := qty.Round(4).String()
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// ParseQuantity parses a decimal quantity from its string form, rejecting
// values the quantity columns cannot hold.
func ParseQuantity(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
