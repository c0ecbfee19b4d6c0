package processbroadcast

import (
	"context"
	"time"

	"notification-engine/internal/dispatch"
	"notification-engine/internal/models"
)

// BroadcastStore is the slice of the broadcast repository the fan-out needs.
type BroadcastStore interface {
	GetByID(ctx context.Context, id string) (*models.Broadcast, error)
	BeginSending(ctx context.Context, id string, totalRecipients int64) (bool, error)
	Complete(ctx context.Context, id string, completedAt time.Time) (bool, error)
	Fail(ctx context.Context, id, errorLog string) error
	IncrementFailed(ctx context.Context, id, errorLine string) error
}

// UserStreams counts and walks the recipient population.
type UserStreams interface {
	CountByFilter(ctx context.Context, filter map[string]interface{}) (int64, error)
	StreamByFilter(ctx context.Context, filter map[string]interface{}, batchSize int, fn func(*models.User) error) error
}

// Dispatcher runs the per-recipient dispatch pipeline.
type Dispatcher interface {
	Send(ctx context.Context, req *dispatch.Request) (*dispatch.Outcome, error)
}
