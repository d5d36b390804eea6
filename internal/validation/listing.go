package validation

import (
	"strings"
	"unicode/utf8"
)

// Listing field limits.
const (
	TitleMinLength       = 5
	TitleMaxLength       = 200
	DescriptionMinLength = 10
	LocationMaxLength    = 200
)

// ListingFields are the user-editable listing attributes.
type ListingFields struct {
	Title       string
	Description string
	Price       *float64
	Location    string
	CategoryID  uint
}

// ValidateListing returns the first failing field, checked in form order.
func ValidateListing(f ListingFields) error {
	title := utf8.RuneCountInString(strings.TrimSpace(f.Title))
	switch {
	case title == 0:
		return fieldError("title", "Názov je povinný.")
	case title < TitleMinLength || title > TitleMaxLength:
		return fieldError("title", "Názov musí mať 5 až 200 znakov.")
	}

	desc := utf8.RuneCountInString(strings.TrimSpace(f.Description))
	switch {
	case desc == 0:
		return fieldError("description", "Popis je povinný.")
	case desc < DescriptionMinLength:
		return fieldError("description", "Popis musí mať aspoň 10 znakov.")
	}

	if f.Price == nil {
		return fieldError("price", "Cena je povinná.")
	}
	if *f.Price < 0 {
		return fieldError("price", "Cena nemôže byť záporná.")
	}

	loc := strings.TrimSpace(f.Location)
	if loc == "" {
		return fieldError("location", "Lokalita je povinná.")
	}
	if utf8.RuneCountInString(loc) > LocationMaxLength {
		return fieldError("location", "Lokalita je príliš dlhá.")
	}

	if f.CategoryID == 0 {
		return fieldError("category_id", "Kategória je povinná.")
	}
	return nil
}
