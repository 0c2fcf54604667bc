package web

import (
	"github.com/go-petr/pet-atm/pkg/moneypkg"
	"github.com/go-petr/pet-atm/pkg/pinpkg"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidPIN validates that the field holds exactly four digits.
var ValidPIN validator.Func = func(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return pinpkg.Valid(s)
	}

	return false
}

// ValidAmount validates that the field holds a positive decimal below moneypkg.Limit with at most two fractional digits.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}

	return moneypkg.Valid(d)
}

// RegisterValidators adds the pin and amount tags to v.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("pin", ValidPIN); err != nil {
		return err
	}

	return v.RegisterValidation("amount", ValidAmount)
}
