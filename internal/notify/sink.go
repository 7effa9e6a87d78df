package notify

import (
	"context"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/store"
)

// Sink delivers a notification to a user. Delivery failures are the
// sink's concern; the scheduling engine never retries.
type Sink interface {
	Send(ctx context.Context, userID uuid.UUID, title, message string) error
}

// StoreSink writes notifications into the persistent inbox, which is
// how the surrounding system delivers them to clients.
type StoreSink struct {
	repo store.NotificationRepository
}

func NewStoreSink(repo store.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Send(ctx context.Context, userID uuid.UUID, title, message string) error {
	_, err := s.repo.Insert(ctx, domain.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
	})
	return err
}
