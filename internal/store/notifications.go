package store

import (
	"context"
	"fmt"

	"billboard-realtime/internal/model"

	"github.com/google/uuid"
)

const defaultNotificationLimit = 50

func (s *Store) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.UserID == "" || n.Type == "" || n.Title == "" {
		return model.Notification{}, fmt.Errorf("notification needs a user, type and title: %w", ErrInvalid)
	}
	n.ID = uuid.NewString()
	n.Read = false
	n.CreatedAt = s.now()
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return model.Notification{}, err
	}
	return n, nil
}

// ListNotifications returns the newest notifications first.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var out []model.Notification
	err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) UnreadNotificationCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	return nil
}
