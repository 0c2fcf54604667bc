// Package cardpkg generates and normalizes payment card artifacts.
package cardpkg

import (
	"strings"
	"time"

	"github.com/go-petr/pet-atm/pkg/randompkg"
)

const (
	groups       = 4
	groupSize    = 4
	cvvSize      = 3
	validFor     = 1825 * 24 * time.Hour
	expiryLayout = "01/06"
)

// Number generates a random 16 digit card number grouped by four digits.
func Number() string {
	parts := make([]string, groups)
	for i := range parts {
		parts[i] = randompkg.Digits(groupSize)
	}

	return strings.Join(parts, " ")
}

// Expiry returns the MM/YY expiry of a card issued at now.
func Expiry(now time.Time) string {
	return now.Add(validFor).Format(expiryLayout)
}

// CVV generates a random 3 digit card verification value.
func CVV() string {
	return randompkg.Digits(cvvSize)
}

// Sanitize removes every non-digit character from raw.
func Sanitize(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}

		return -1
	}, raw)
}

// Mask hides all but the last group of the card number.
func Mask(number string) string {
	digits := Sanitize(number)
	if len(digits) <= groupSize {
		return digits
	}

	return "XXXX XXXX XXXX " + digits[len(digits)-groupSize:]
}
