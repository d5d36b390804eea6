package models

import "time"

// Display formats used in JSON payloads consumed by the dashboard scripts.
const (
	DisplayDateFormat     = "02.01.2006"
	DisplayDateTimeFormat = "02.01.2006 15:04"
)

// ThreadKey identifies a conversation: the other participant plus the listing
// it is about. ListingID 0 means "no listing" and is a distinct thread.
type ThreadKey struct {
	OtherUserID uint
	ListingID   uint
}

// NewThreadKey builds the key for a message as seen by userID.
func NewThreadKey(m *Message, userID uint) ThreadKey {
	key := ThreadKey{OtherUserID: m.OtherParty(userID)}
	if m.ListingID != nil {
		key.ListingID = *m.ListingID
	}
	return key
}

// ListingRef returns the listing id as a nullable value.
func (k ThreadKey) ListingRef() *uint {
	if k.ListingID == 0 {
		return nil
	}
	id := k.ListingID
	return &id
}

// ConversationThread is one row of the conversations overview.
type ConversationThread struct {
	OtherUserID     uint      `json:"other_user_id"`
	OtherUserName   string    `json:"other_user_name"`
	ListingID       *uint     `json:"listing_id"`
	ListingTitle    *string   `json:"listing_title"`
	LastMessage     string    `json:"last_message"`
	LastMessageAt   time.Time `json:"-"`
	LastMessageTime string    `json:"last_message_time"`
	IsSender        bool      `json:"is_sender"`
	UnreadCount     int64     `json:"unread_count"`
}

// ThreadMessage is a message rendered from the caller's point of view.
type ThreadMessage struct {
	ID         uint   `json:"id"`
	Content    string `json:"content"`
	IsSender   bool   `json:"is_sender"`
	SenderName string `json:"sender_name"`
	CreatedAt  string `json:"created_at"`
	IsRead     bool   `json:"is_read"`
}

// Thread is a full conversation between the caller and another user.
type Thread struct {
	OtherUser *User           `json:"other_user"`
	Listing   *Listing        `json:"listing"`
	Messages  []ThreadMessage `json:"messages"`
}
