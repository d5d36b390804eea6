package repository

import (
	"context"
	"database/sql"

	"bazar/internal/models"
	"bazar/internal/observability"

	"gorm.io/gorm"
)

// ConversationData is everything the conversations overview needs, read in one transaction.
type ConversationData struct {
	// Messages involving the user, newest first.
	Messages []models.Message
	// Unread counts keyed by thread; ListingID 0 counts messages without a listing.
	Unread map[models.ThreadKey]int64
	// ListingTitles for listings that still exist.
	ListingTitles map[uint]string
}

// Isolation for the multi-statement message views. Thread writes read marks.
var (
	conversationsTx = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	threadTx        = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
)

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	LoadConversations(ctx context.Context, userID uint) (*ConversationData, error)
	// Thread returns the messages between userID and otherID about listingID (nil means
	// no listing), oldest first, after marking those addressed to userID as read.
	Thread(ctx context.Context, userID, otherID uint, listingID *uint) ([]models.Message, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Message, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id uint) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	msg.IsRead = false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Sender", "Receiver").Create(msg).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, notFoundOr(err, "Message", id)
	}
	return &msg, nil
}

func involving(db *gorm.DB, userID uint) *gorm.DB {
	return db.Where("messages.sender_id = ? OR messages.receiver_id = ?", userID, userID)
}

func sameListing(db *gorm.DB, listingID *uint) *gorm.DB {
	if listingID == nil {
		return db.Where("messages.listing_id IS NULL")
	}
	return db.Where("messages.listing_id = ?", *listingID)
}

func (r *messageRepository) LoadConversations(ctx context.Context, userID uint) (*ConversationData, error) {
	defer observability.TrackQuery("conversations", "messages")()

	data := &ConversationData{
		Unread:        make(map[models.ThreadKey]int64),
		ListingTitles: make(map[uint]string),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := involving(tx.Preload("Sender").Preload("Receiver"), userID).
			Order("messages.created_at DESC, messages.id DESC").
			Find(&data.Messages).Error; err != nil {
			return err
		}

		var counts []struct {
			SenderID  uint
			ListingID *uint
			Count     int64
		}
		if err := tx.Model(&models.Message{}).
			Select("sender_id, listing_id, COUNT(*) AS count").
			Where("receiver_id = ? AND is_read = ?", userID, false).
			Group("sender_id, listing_id").
			Scan(&counts).Error; err != nil {
			return err
		}
		for _, c := range counts {
			key := models.ThreadKey{OtherUserID: c.SenderID}
			if c.ListingID != nil {
				key.ListingID = *c.ListingID
			}
			data.Unread[key] += c.Count
		}

		ids := listingIDs(data.Messages)
		if len(ids) == 0 {
			return nil
		}
		var rows []struct {
			ID    uint
			Title string
		}
		if err := tx.Model(&models.Listing{}).Select("id", "title").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			data.ListingTitles[row.ID] = row.Title
		}
		return nil
	}, conversationsTx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return data, nil
}

func listingIDs(msgs []models.Message) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, m := range msgs {
		if m.ListingID == nil {
			continue
		}
		if _, ok := seen[*m.ListingID]; ok {
			continue
		}
		seen[*m.ListingID] = struct{}{}
		ids = append(ids, *m.ListingID)
	}
	return ids
}

func (r *messageRepository) Thread(ctx context.Context, userID, otherID uint, listingID *uint) ([]models.Message, error) {
	defer observability.TrackQuery("thread", "messages")()

	var msgs []models.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Preload("Sender").
			Where("(messages.sender_id = ? AND messages.receiver_id = ?) OR (messages.sender_id = ? AND messages.receiver_id = ?)",
				userID, otherID, otherID, userID)
		if err := sameListing(q, listingID).
			Order("messages.created_at ASC, messages.id ASC").
			Find(&msgs).Error; err != nil {
			return err
		}

		mark := tx.Model(&models.Message{}).
			Where("messages.sender_id = ? AND messages.receiver_id = ? AND messages.is_read = ?", otherID, userID, false)
		return sameListing(mark, listingID).Update("is_read", true).Error
	}, threadTx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	for i := range msgs {
		if msgs[i].SenderID == otherID && msgs[i].ReceiverID == userID {
			msgs[i].IsRead = true
		}
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func (r *messageRepository) ListForUser(ctx context.Context, userID uint) ([]models.Message, error) {
	msgs := []models.Message{}
	if err := involving(readDB(r.db).WithContext(ctx).Preload("Sender").Preload("Receiver"), userID).
		Order("messages.created_at DESC, messages.id DESC").
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.Message{}).Where("id = ?", id).Update("is_read", true).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
