package sendnotification

import (
	"context"
	"time"

	"notification-engine/internal/models"
)

// NotificationStore is the slice of the notification repository the worker
// needs. The bool results report whether the guarded transition happened.
type NotificationStore interface {
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id, errorMessage string) (bool, error)
}

// BroadcastCounters bumps the parent broadcast's progress counters.
type BroadcastCounters interface {
	IncrementSent(ctx context.Context, id string) error
	IncrementFailed(ctx context.Context, id, errorLine string) error
}
