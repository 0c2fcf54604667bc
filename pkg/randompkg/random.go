// Package randompkg provides functionality for generating random application items.
package randompkg

import (
	"crypto/rand"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz"
	digits   = "0123456789"

	accountIDMin = 1_000_000_000 // 10^9
	accountIDMax = 9_999_999_999 // 10^10 - 1
)

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int64) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// Float64 is a shortcut for generating a random float between 0 and 1 using crypto/rand.
func Float64() float64 {
	return float64(Intn(1<<32)) / (1 << 32)
}

// IntBetween generates a random integer in [min, max].
func IntBetween(min, max int64) int64 {
	return min + Intn(max-min+1)
}

// FloatBetween generates a random decimal number between min and max rounded down to 2 decimals.
func FloatBetween(min, max float64) float64 {
	numInRange := min + Float64()*(max-min)
	return math.Floor(numInRange*100) / 100
}

// String generates a random string of length n.
func String(n int) string {
	return fromAlphabet(alphabet, n)
}

// Digits generates a random string of n decimal digits.
func Digits(n int) string {
	return fromAlphabet(digits, n)
}

func fromAlphabet(a string, n int) string {
	var sb strings.Builder

	k := int64(len(a))

	for i := 0; i < n; i++ {
		_ = sb.WriteByte(a[Intn(k)]) // The returned err is always nil.
	}

	return sb.String()
}

// AccountID generates a random 10 digit account identifier.
func AccountID() string {
	return big.NewInt(IntBetween(accountIDMin, accountIDMax)).String()
}

// Name generates a random account holder name.
func Name() string {
	return String(8)
}

// PIN generates a random 4 digit PIN.
func PIN() string {
	return Digits(4)
}

// MoneyAmountBetween generates a random amount of money between min and max with cents precision.
func MoneyAmountBetween(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(FloatBetween(min, max)).Round(2)
}
