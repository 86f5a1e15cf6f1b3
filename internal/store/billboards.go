package store

import (
	"context"
	"fmt"
	"strings"

	"billboard-realtime/internal/model"

	"github.com/google/uuid"
)

func (s *Store) CreateBillboard(ctx context.Context, ownerID, title, location string) (model.Billboard, error) {
	title = strings.TrimSpace(title)
	if ownerID == "" || title == "" {
		return model.Billboard{}, fmt.Errorf("billboard needs an owner and a title: %w", ErrInvalid)
	}
	now := s.now()
	b := model.Billboard{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Location:  strings.TrimSpace(location),
		Status:    model.BillboardPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return model.Billboard{}, err
	}
	return b, nil
}

func (s *Store) GetBillboard(ctx context.Context, id string) (model.Billboard, error) {
	var b model.Billboard
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return model.Billboard{}, notFound(err, "billboard")
	}
	return b, nil
}

// UpdateBillboardStatus moves a listing to status and returns the updated row
// together with the status it had before.
func (s *Store) UpdateBillboardStatus(ctx context.Context, id string, status model.BillboardStatus) (model.Billboard, model.BillboardStatus, error) {
	if !status.Valid() {
		return model.Billboard{}, "", fmt.Errorf("unknown status %q: %w", status, ErrInvalid)
	}
	b, err := s.GetBillboard(ctx, id)
	if err != nil {
		return model.Billboard{}, "", err
	}
	previous := b.Status
	b.Status = status
	b.UpdatedAt = s.now()
	err = s.db.WithContext(ctx).
		Model(&model.Billboard{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": b.UpdatedAt}).Error
	if err != nil {
		return model.Billboard{}, "", err
	}
	return b, previous, nil
}
