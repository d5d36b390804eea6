package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"bazar/internal/middleware"
	"bazar/internal/models"
	"bazar/internal/observability"
	"bazar/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MaxMessageLength bounds message content, in characters.
const MaxMessageLength = 5000

// MessageService sends messages and aggregates them into conversations.
type MessageService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	listings repository.ListingRepository
}

func NewMessageService(messages repository.MessageRepository, users repository.UserRepository, listings repository.ListingRepository) *MessageService {
	return &MessageService{messages: messages, users: users, listings: listings}
}

// SendMessageInput is a message submitted by SenderID.
type SendMessageInput struct {
	SenderID   uint
	ReceiverID uint
	ListingID  *uint
	Content    string
}

// Send persists a new unread message. The receiver is not checked for existence.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (_ *models.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService", "Send")
	defer func() { observability.EndSpan(span, err) }()

	content := strings.TrimSpace(in.Content)
	if in.ReceiverID == 0 {
		return nil, models.NewValidationError("Chýba príjemca správy.").WithField("receiver_id")
	}
	if content == "" {
		return nil, models.NewValidationError("Správa nemôže byť prázdna.").WithField("content")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, models.NewValidationError("Správa je príliš dlhá.").WithField("content")
	}
	if in.ListingID != nil && *in.ListingID == 0 {
		in.ListingID = nil
	}
	if in.SenderID == in.ReceiverID {
		middleware.Logger.WarnContext(ctx, "user sent a message to themselves", slog.Uint64("user_id", uint64(in.SenderID)))
	}

	msg := &models.Message{
		Content:    content,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		ListingID:  in.ListingID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	observability.MessagesSent.Inc()
	return msg, nil
}

// Conversations groups every message of userID into threads keyed by
// (other user, listing), newest activity first.
func (s *MessageService) Conversations(ctx context.Context, userID uint) (_ []models.ConversationThread, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService", "Conversations", attribute.Int64("user_id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	data, err := s.messages.LoadConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	return aggregateConversations(userID, data), nil
}

// aggregateConversations walks data.Messages (newest first) once; the first message
// seen for a thread is its preview.
func aggregateConversations(userID uint, data *repository.ConversationData) []models.ConversationThread {
	index := make(map[models.ThreadKey]int)
	threads := make([]models.ConversationThread, 0)

	for i := range data.Messages {
		m := &data.Messages[i]
		key := models.NewThreadKey(m, userID)
		if _, seen := index[key]; seen {
			continue
		}
		index[key] = len(threads)

		thread := models.ConversationThread{
			OtherUserID:     key.OtherUserID,
			OtherUserName:   otherUserName(m, userID),
			ListingID:       key.ListingRef(),
			LastMessage:     m.Content,
			LastMessageAt:   m.CreatedAt,
			LastMessageTime: formatDate(m.CreatedAt, models.DisplayDateTimeFormat),
			IsSender:        m.SenderID == userID,
			UnreadCount:     data.Unread[key],
		}
		if key.ListingID != 0 {
			if title, ok := data.ListingTitles[key.ListingID]; ok {
				thread.ListingTitle = &title
			}
		}
		threads = append(threads, thread)
	}
	return threads
}

func otherUserName(m *models.Message, userID uint) string {
	other := m.Sender
	if m.SenderID == userID {
		other = m.Receiver
	}
	if other == nil {
		return ""
	}
	return other.Username
}

// Thread loads one conversation oldest first and marks it read for userID.
// listingID nil selects the thread that is not about any listing.
func (s *MessageService) Thread(ctx context.Context, userID, otherID uint, listingID *uint) (*models.Thread, error) {
	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return nil, err
	}

	var listing *models.Listing
	if listingID != nil {
		listing, err = s.listings.GetByID(ctx, *listingID)
		var appErr *models.AppError
		if err != nil && !(errors.As(err, &appErr) && appErr.Code == models.CodeNotFound) {
			return nil, err
		}
	}

	msgs, err := s.messages.Thread(ctx, userID, otherID, listingID)
	if err != nil {
		return nil, err
	}

	out := &models.Thread{OtherUser: other, Listing: listing, Messages: make([]models.ThreadMessage, 0, len(msgs))}
	for _, m := range msgs {
		name := ""
		if m.Sender != nil {
			name = m.Sender.Username
		}
		out.Messages = append(out.Messages, models.ThreadMessage{
			ID:         m.ID,
			Content:    m.Content,
			IsSender:   m.SenderID == userID,
			SenderName: name,
			CreatedAt:  formatDate(m.CreatedAt, models.DisplayDateTimeFormat),
			IsRead:     m.IsRead,
		})
	}
	return out, nil
}

// UnreadCount is the number of unread messages addressed to userID.
func (s *MessageService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.messages.UnreadCount(ctx, userID)
}

// MessageItem is a message as listed on the dashboard.
type MessageItem struct {
	ID           uint    `json:"id"`
	Content      string  `json:"content"`
	SenderID     uint    `json:"sender_id"`
	SenderName   string  `json:"sender_name"`
	ReceiverID   uint    `json:"receiver_id"`
	ReceiverName string  `json:"receiver_name"`
	ListingID    *uint   `json:"listing_id"`
	ListingTitle *string `json:"listing_title"`
	IsSender     bool    `json:"is_sender"`
	IsRead       bool    `json:"is_read"`
	CreatedAt    string  `json:"created_at"`
}

// MyMessages lists every message userID sent or received, newest first.
func (s *MessageService) MyMessages(ctx context.Context, userID uint) ([]MessageItem, error) {
	msgs, err := s.messages.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var ids []uint
	for _, m := range msgs {
		if m.ListingID != nil {
			ids = append(ids, *m.ListingID)
		}
	}
	titles, err := s.listings.TitlesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]MessageItem, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		item := MessageItem{
			ID:         m.ID,
			Content:    m.Content,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			ListingID:  m.ListingID,
			IsSender:   m.SenderID == userID,
			IsRead:     m.IsRead,
			CreatedAt:  formatDate(m.CreatedAt, models.DisplayDateTimeFormat),
		}
		if m.Sender != nil {
			item.SenderName = m.Sender.Username
		}
		if m.Receiver != nil {
			item.ReceiverName = m.Receiver.Username
		}
		if m.ListingID != nil {
			if title, ok := titles[*m.ListingID]; ok {
				item.ListingTitle = &title
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// MarkRead marks a single message read. Only its receiver may.
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID uint) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ReceiverID != userID {
		return models.NewForbiddenError("Túto správu nemôžete označiť ako prečítanú.")
	}
	if msg.IsRead {
		return nil
	}
	return s.messages.MarkRead(ctx, messageID)
}
