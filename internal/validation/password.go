// Package validation provides input validation utilities
package validation

import (
	"regexp"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// FieldError is a validation failure tied to one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func fieldError(field, msg string) *FieldError {
	return &FieldError{Field: field, Message: msg}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)

// ValidatePassword checks the minimum length of a new password.
func ValidatePassword(password string) error {
	if password == "" {
		return fieldError("password", "Heslo je povinné.")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fieldError("password", "Heslo musí mať aspoň 6 znakov.")
	}
	return nil
}

// ValidateUsername checks that a username has 2 to 20 characters.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 {
		return fieldError("username", "Používateľské meno je povinné.")
	}
	if n < 2 || n > 20 {
		return fieldError("username", "Používateľské meno musí mať 2 až 20 znakov.")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if email == "" {
		return fieldError("email", "Email je povinný.")
	}
	if len(email) > 120 || !emailRegex.MatchString(email) {
		return fieldError("email", "Neplatná emailová adresa.")
	}
	return nil
}
