package store

import (
	"context"
	"fmt"
	"sort"

	"billboard-realtime/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// IsParticipant backs the hub's membership check for conversation rooms.
func (s *Store) IsParticipant(ctx context.Context, userID, conversationID string) (bool, error) {
	if userID == "" || conversationID == "" {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetOrCreateConversation returns the conversation about billboardID whose
// participants are exactly creatorID plus participantIDs, creating it when
// none exists.
func (s *Store) GetOrCreateConversation(ctx context.Context, creatorID string, participantIDs []string, billboardID *string, subject string) (model.Conversation, bool, error) {
	ids := lo.Uniq(lo.Compact(append([]string{creatorID}, participantIDs...)))
	if creatorID == "" || len(ids) < 2 {
		return model.Conversation{}, false, fmt.Errorf("a conversation needs at least two participants: %w", ErrInvalid)
	}
	sort.Strings(ids)

	if billboardID != nil {
		if _, err := s.GetBillboard(ctx, *billboardID); err != nil {
			return model.Conversation{}, false, err
		}
	}

	existing, err := s.ListConversations(ctx, creatorID)
	if err != nil {
		return model.Conversation{}, false, err
	}
	for _, conv := range existing {
		if !sameBillboard(conv.BillboardID, billboardID) {
			continue
		}
		members := lo.Map(conv.Participants, func(p model.ConversationParticipant, _ int) string { return p.UserID })
		sort.Strings(members)
		if lo.Every(ids, members) && len(members) == len(ids) {
			return conv, false, nil
		}
	}

	now := s.now()
	conv := model.Conversation{
		ID:          uuid.NewString(),
		BillboardID: billboardID,
		Subject:     subject,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, id := range ids {
		conv.Participants = append(conv.Participants, model.ConversationParticipant{
			ConversationID: conv.ID,
			UserID:         id,
			JoinedAt:       now,
		})
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return model.Conversation{}, false, err
	}
	return conv, true, nil
}

func sameBillboard(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// GetConversation loads a conversation the user participates in.
func (s *Store) GetConversation(ctx context.Context, userID, conversationID string) (model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Preload("Participants").First(&conv, "id = ?", conversationID).Error
	if err != nil {
		return model.Conversation{}, notFound(err, "conversation")
	}
	if !lo.ContainsBy(conv.Participants, func(p model.ConversationParticipant) bool { return p.UserID == userID }) {
		return model.Conversation{}, fmt.Errorf("conversation %s: %w", conversationID, ErrForbidden)
	}
	return conv, nil
}

// ListConversations returns the user's conversations, most recently active
// first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := s.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Preload("Participants").
		Order("conversations.updated_at DESC").
		Find(&convs).Error
	return convs, err
}

func (s *Store) ParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (s *Store) touchConversation(tx *gorm.DB, conversationID string) error {
	return tx.Model(&model.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", s.now()).Error
}
