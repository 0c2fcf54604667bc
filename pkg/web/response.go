// Package web defines common components for a web application.
package web

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	AccessToken          string `json:"access_token,omitempty"`
	AccessTokenExpiresAt string `json:"access_token_expires_at,omitempty"`
	Data                 any    `json:"data,omitempty"`
	Error                string `json:"error,omitempty"`
}

// Error wraps a given err into json friendly response.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// BindError turns a request binding failure into a response.
//
// Validation failures are reported for the first offending field only.
func BindError(err error) Response {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return Response{Error: GetErrorMsg(ve[0])}
	}

	return Error(err)
}

// GetErrorMsg returns a readable message for a failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return field + " field is required"
	case "required_without":
		return field + " field is required without " + fe.Param()
	case "required_with":
		return field + " field is required with " + fe.Param()
	case "len":
		return fmt.Sprintf("%s field must have length %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s field must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s field must be at most %s", field, fe.Param())
	case "numeric":
		return field + " field must be numeric"
	case "pin":
		return field + " field must be exactly 4 digits"
	case "amount":
		return field + " field must be a positive amount with at most 2 decimals"
	}

	return fmt.Sprintf("%s field failed on the '%s' tag", field, fe.Tag())
}
