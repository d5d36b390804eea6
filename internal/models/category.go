package models

// Category groups listings. ParentID allows a shallow tree.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	ParentID    *uint  `gorm:"index" json:"parent_id,omitempty"`
}
