package contextutils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// IsValidEmail checks if an email address is valid using go-playground/validator
func IsValidEmail(email string) bool {
	return validate.Var(email, "email") == nil
}

// NormalizeEmail lowercases and trims an email address. Import rows and API
// payloads arrive with inconsistent casing; uniqueness checks use this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateStruct runs go-playground validation tags on a request payload
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return NewAppErrorWithCause(ErrorCodeValidationFailed, SeverityWarn, "Validation failed", err.Error(), err)
	}
	return nil
}
