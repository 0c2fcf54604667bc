// Package moneypkg validates monetary amounts before any arithmetic is done on them.
package moneypkg

import "github.com/shopspring/decimal"

const (
	// Scale is the number of decimal places an amount may carry.
	Scale = 2
	// IntegerDigits bounds the integer part of amounts and balances, matching numeric(18,2).
	IntegerDigits = 16
	// maxFractionDigits bounds the stored exponent so Truncate never has to rescale a huge coefficient.
	maxFractionDigits = 18
)

// Limit is the smallest value that is too large to be an amount or a balance.
var Limit = decimal.New(1, IntegerDigits)

// InRange reports whether d is below Limit in absolute value.
//
// Only the exponent and the coefficient length are inspected, so values like 1e2000000000 are
// rejected without being expanded.
func InRange(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}

	exp := int64(d.Exponent())
	if exp < -maxFractionDigits {
		return false
	}

	return int64(d.NumDigits())+exp <= IntegerDigits
}

// Valid reports whether d is a positive in-range amount with at most Scale decimal places.
func Valid(d decimal.Decimal) bool {
	if !d.IsPositive() || !InRange(d) {
		return false
	}

	return d.Equal(d.Truncate(Scale))
}
