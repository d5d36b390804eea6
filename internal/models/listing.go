package models

import "time"

// Listing statuses.
const (
	ListingStatusActive  = "active"
	ListingStatusSold    = "sold"
	ListingStatusExpired = "expired"
)

// Listing is an item offered for sale.
type Listing struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Price       float64   `gorm:"not null" json:"price"`
	Location    string    `gorm:"size:200;not null" json:"location"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CategoryID  uint      `gorm:"not null;index" json:"category_id"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Status      string    `gorm:"size:20;not null;default:active;index" json:"status"`
	Images      []Image   `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"images"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsValidListingStatus reports whether s is a known listing status.
func IsValidListingStatus(s string) bool {
	switch s {
	case ListingStatusActive, ListingStatusSold, ListingStatusExpired:
		return true
	}
	return false
}

// CoverImage returns the image shown in list views: the primary one when set,
// otherwise the first uploaded.
func (l *Listing) CoverImage() *Image {
	if l == nil || len(l.Images) == 0 {
		return nil
	}
	for i := range l.Images {
		if l.Images[i].IsPrimary {
			return &l.Images[i]
		}
	}
	return &l.Images[0]
}

// CategoryName returns the category label or the fallback used by the
// dashboard when the category row is missing.
func (l *Listing) CategoryName() string {
	if l.Category == nil || l.Category.Name == "" {
		return "Bez kategórie"
	}
	return l.Category.Name
}

// AuthorName returns the owner's username when loaded.
func (l *Listing) AuthorName() string {
	if l.User == nil {
		return ""
	}
	return l.User.Username
}

// ListingFilter holds the optional search dimensions. Zero values impose no constraint.
type ListingFilter struct {
	Query      string
	CategoryID *uint
	MinPrice   *float64
	MaxPrice   *float64
	Location   string
}

// ListingPageSize is the number of listings per search results page.
const ListingPageSize = 12

// ListingPage is one page of search results.
type ListingPage struct {
	Items      []Listing `json:"listings"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
	HasPrev    bool      `json:"has_prev"`
	HasNext    bool      `json:"has_next"`
}
