package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"billboard-realtime/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMessageLimit = 100
	maxMessageLimit     = 500
)

// AppendMessage persists a message from a participant of the conversation.
func (s *Store) AppendMessage(ctx context.Context, conversationID, senderID, content string) (model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Message{}, fmt.Errorf("empty message: %w", ErrInvalid)
	}
	ok, err := s.IsParticipant(ctx, senderID, conversationID)
	if err != nil {
		return model.Message{}, err
	}
	if !ok {
		return model.Message{}, fmt.Errorf("conversation %s: %w", conversationID, ErrForbidden)
	}

	msg := model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return s.touchConversation(tx, conversationID)
	})
	if err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// MessageCursor marks the last message of a page. A cursor without an ID
// resumes strictly after CreatedAt.
type MessageCursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorAfter returns the cursor that resumes after msg.
func CursorAfter(msg model.Message) MessageCursor {
	return MessageCursor{CreatedAt: msg.CreatedAt, ID: msg.ID}
}

// ListMessages pages through a conversation in (created_at, id) order,
// returning messages after the cursor with their read receipts.
func (s *Store) ListMessages(ctx context.Context, userID, conversationID string, after MessageCursor, limit int) ([]model.Message, error) {
	ok, err := s.IsParticipant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrForbidden)
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	q := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	switch {
	case after.CreatedAt.IsZero():
	case after.ID == "":
		q = q.Where("created_at > ?", after.CreatedAt)
	default:
		q = q.Where("(created_at > ? OR (created_at = ? AND id > ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var msgs []model.Message
	err = q.Preload("Reads", func(db *gorm.DB) *gorm.DB {
		return db.Order("read_at ASC").Order("user_id ASC")
	}).Order("created_at ASC").Order("id ASC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// MarkMessageRead records userID's read receipt for a message they received.
// Every participant other than the sender gets their own receipt; marking
// the same message again returns the stored receipt.
func (s *Store) MarkMessageRead(ctx context.Context, messageID, userID string) (string, time.Time, error) {
	var msg model.Message
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
		return "", time.Time{}, notFound(err, "message")
	}
	ok, err := s.IsParticipant(ctx, userID, msg.ConversationID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, fmt.Errorf("message %s: %w", messageID, ErrForbidden)
	}
	if msg.SenderID == userID {
		return "", time.Time{}, fmt.Errorf("cannot mark own message read: %w", ErrInvalid)
	}

	receipt := model.MessageRead{MessageID: messageID, UserID: userID, ReadAt: s.now()}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipt).Error; err != nil {
			return err
		}
		return tx.First(&receipt, "message_id = ? AND user_id = ?", messageID, userID).Error
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return msg.ConversationID, receipt.ReadAt, nil
}

// MessageReads lists the read receipts stored for a message.
func (s *Store) MessageReads(ctx context.Context, messageID string) ([]model.MessageRead, error) {
	var reads []model.MessageRead
	err := s.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("read_at ASC").Order("user_id ASC").
		Find(&reads).Error
	return reads, err
}
