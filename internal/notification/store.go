package notification

import (
	"context"

	"github.com/google/uuid"

	id "drs/pkg/domain"
)

// Store persists notifications. Append-only apart from the read flag.
type Store interface {
	Append(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Notification, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID) error
}
