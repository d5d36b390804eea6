package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func uintPtr(v uint) *uint { return &v }

func TestNewThreadKey(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		viewer   uint
		expected ThreadKey
	}{
		{"sender view without listing", Message{SenderID: 1, ReceiverID: 2}, 1, ThreadKey{OtherUserID: 2}},
		{"receiver view without listing", Message{SenderID: 1, ReceiverID: 2}, 2, ThreadKey{OtherUserID: 1}},
		{"with listing", Message{SenderID: 1, ReceiverID: 2, ListingID: uintPtr(5)}, 2, ThreadKey{OtherUserID: 1, ListingID: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewThreadKey(&tt.msg, tt.viewer))
		})
	}
}

func TestThreadKey_ListingAndNoListingDiffer(t *testing.T) {
	a := NewThreadKey(&Message{SenderID: 1, ReceiverID: 2}, 1)
	b := NewThreadKey(&Message{SenderID: 1, ReceiverID: 2, ListingID: uintPtr(5)}, 1)
	assert.NotEqual(t, a, b)
	assert.Nil(t, a.ListingRef())
	assert.Equal(t, uint(5), *b.ListingRef())
}

func TestListing_CoverImage(t *testing.T) {
	var empty *Listing
	assert.Nil(t, empty.CoverImage())

	l := &Listing{Images: []Image{{ID: 1, Filename: "a.jpg"}, {ID: 2, Filename: "b.jpg", IsPrimary: true}}}
	assert.Equal(t, "b.jpg", l.CoverImage().Filename)

	l.Images[1].IsPrimary = false
	assert.Equal(t, "a.jpg", l.CoverImage().Filename)
}

func TestListing_CategoryName(t *testing.T) {
	assert.Equal(t, "Bez kategórie", (&Listing{}).CategoryName())
	assert.Equal(t, "Autá", (&Listing{Category: &Category{Name: "Autá"}}).CategoryName())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewNotFoundError("Listing", 1), fiber.StatusNotFound},
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewForbiddenError("no"), fiber.StatusForbidden},
		{NewConflictError("dup"), fiber.StatusConflict},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewForbiddenError("no")), fiber.StatusForbidden},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(tt.err))
		})
	}
}

func TestAppError_WithField(t *testing.T) {
	base := NewValidationError("too short")
	tagged := base.WithField("new_password")
	assert.Equal(t, "new_password", tagged.Field)
	assert.Empty(t, base.Field)
}
