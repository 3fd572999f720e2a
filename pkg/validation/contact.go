// Package validation holds format checks for contact channel values.
package validation

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^[\+]?[1-9][\d\s\-\(\)\.]{6,20}$`)
	phoneDigits  = regexp.MustCompile(`\D`)
)

// NormalizeEmail trims whitespace and collapses empty strings to nil so an
// absent value and a blank value behave the same.
func NormalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// NormalizePhone trims whitespace and collapses empty strings to nil.
func NormalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*phone)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ValidEmail reports whether the value looks like an email address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPhone reports whether the value looks like a phone number. Formatting
// characters are allowed but the value must carry at least 7 digits.
func ValidPhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := phoneDigits.ReplaceAllString(phone, "")
	return len(digits) >= 7
}
