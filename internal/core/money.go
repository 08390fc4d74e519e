// Package core provides value parsing and balance arithmetic.
//
// Values are carried as decimal.Decimal so sums of income and outcome never
// accumulate floating-point error.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseValue converts a decimal string into a transaction value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected, as are empty strings and anything decimal.NewFromString refuses.
// Zero is a valid value.
//
// Examples:
//
//	ParseValue("12.34") -> 12.34, nil
//	ParseValue("12,34") -> 12.34, nil
//	ParseValue("-1")    -> 0, ErrInvalidValue
func ParseValue(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidValue
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidValue
	}
	if strings.Count(s, ",") > 1 || (strings.Contains(s, ",") && strings.Contains(s, ".")) {
		return decimal.Zero, ErrInvalidValue
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidValue
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidValue
	}
	return v, nil
}

// FormatValue renders a value with two decimal places for display.
func FormatValue(v decimal.Decimal) string {
	return v.StringFixed(2)
}
