package models

import "time"

// Message is a direct message between two users, optionally about a listing.
// ListingID deliberately has no foreign key: deleting a listing leaves its
// messages in place.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	SenderID   uint      `gorm:"not null;index:idx_messages_thread,priority:1" json:"sender_id"`
	Sender     *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	ReceiverID uint      `gorm:"not null;index:idx_messages_thread,priority:2;index:idx_messages_receiver_unread,priority:1" json:"receiver_id"`
	Receiver   *User     `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
	ListingID  *uint     `gorm:"index:idx_messages_thread,priority:3" json:"listing_id"`
	IsRead     bool      `gorm:"not null;default:false;index:idx_messages_receiver_unread,priority:2" json:"is_read"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// OtherParty returns the participant that is not userID.
func (m *Message) OtherParty(userID uint) uint {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Favorite bookmarks a listing for a user. The (user_id, listing_id) pair is unique.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorites_user_listing,priority:1" json:"user_id"`
	ListingID uint      `gorm:"not null;uniqueIndex:idx_favorites_user_listing,priority:2;index" json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`
}
