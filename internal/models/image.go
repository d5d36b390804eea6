package models

import "time"

// Image is an uploaded photo attached to a listing. Filename is the storage key.
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"size:300;not null" json:"filename"`
	ListingID uint      `gorm:"not null;index" json:"listing_id"`
	IsPrimary bool      `gorm:"not null;default:false" json:"is_primary"`
	URL       string    `gorm:"-" json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
