package validate

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/devmarvs/digibank/apperr"
)

// MinPasswordLength is the shortest password the identity service accepts.
const MinPasswordLength = 8

// Password messages.
const (
	PasswordPolicyMessage   = "Password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a digit, without spaces"
	PasswordMismatchMessage = "Passwords do not match"
)

// Required ensures a non-empty string.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation(field+" is required", nil)
	}
	return nil
}

// MinLen ensures a minimum string length.
func MinLen(field, value string, min int) error {
	if utf8.RuneCountInString(value) < min {
		return apperr.Validation(field+" is too short", nil)
	}
	return nil
}

// MaxLen ensures a maximum string length.
func MaxLen(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return apperr.Validation(field+" is too long", nil)
	}
	return nil
}

// Email validates an email address.
func Email(field, value string) error {
	if value == "" {
		return nil
	}
	if !validEmail(value) {
		return apperr.Validation(field+" must be a valid email", nil)
	}
	return nil
}

// Password enforces the identity service's password policy.
func Password(value string) error {
	if !StrongPassword(value) {
		return apperr.Validation(PasswordPolicyMessage, nil)
	}
	return nil
}

// Match ensures a confirmation field repeats the original.
func Match(value, confirmation string) error {
	if value != confirmation {
		return apperr.Validation(PasswordMismatchMessage, nil)
	}
	return nil
}

// StrongPassword reports whether value has at least eight characters drawn
// from letters, digits and !@#$%^&*(), including an upper-case letter, a
// lower-case letter and a digit.
func StrongPassword(value string) bool {
	if utf8.RuneCountInString(value) < MinPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range value {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case unicode.IsSpace(r):
			return false
		case strings.ContainsRune("!@#$%^&*()", r):
		default:
			return false
		}
	}
	return upper && lower && digit
}

func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}
