package service

import (
	"errors"
	"strings"
	"time"

	"bazar/internal/models"
	"bazar/internal/validation"
)

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// formatDate renders t with layout, or "N/A" for the zero time.
func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(layout)
}

// fieldValidationError converts a validation.FieldError into a field-tagged AppError.
func fieldValidationError(err error) error {
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return models.NewValidationError(fe.Message).WithField(fe.Field)
	}
	return models.NewValidationError(err.Error())
}
