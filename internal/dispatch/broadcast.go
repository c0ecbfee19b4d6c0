package dispatch

import (
	"context"
	"fmt"
	"time"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/common/logger"
	"notification-engine/internal/models"
	"notification-engine/internal/queue"
)

// BroadcastSource reads and transitions broadcast records.
type BroadcastSource interface {
	GetByID(ctx context.Context, id string) (*models.Broadcast, error)
	Transition(ctx context.Context, id string, from, to models.BroadcastStatus) (bool, error)
}

// BroadcastControl owns the broadcast lifecycle up to fan-out: validation,
// the draft-to-scheduled transition, and enqueueing the process-broadcast
// job at the right time. Fan-out itself runs in the worker.
type BroadcastControl struct {
	broadcasts BroadcastSource
	templates  TemplateSource
	enqueuer   Enqueuer
	log        logger.Logger
}

func NewBroadcastControl(broadcasts BroadcastSource, templates TemplateSource,
	enqueuer Enqueuer, log logger.Logger) *BroadcastControl {
	return &BroadcastControl{
		broadcasts: broadcasts,
		templates:  templates,
		enqueuer:   enqueuer,
		log:        log,
	}
}

// Start validates a draft broadcast and schedules its fan-out. With no
// scheduled_at the job becomes ready immediately; a future scheduled_at
// delays it. Starting anything but a draft is rejected.
func (c *BroadcastControl) Start(ctx context.Context, broadcastID string) error {
	b, err := c.broadcasts.GetByID(ctx, broadcastID)
	if err != nil {
		return err
	}
	if b.Status != models.BroadcastDraft {
		return errors.NewInvalidStateError(
			fmt.Sprintf("broadcast %s is %s, only drafts can start", broadcastID, b.Status))
	}

	if err := ValidateRecipientFilter(b.RecipientFilter); err != nil {
		return err
	}
	// Fail now on a missing template, not inside the worker.
	if _, err := c.templates.GetByID(ctx, b.TemplateID); err != nil {
		return err
	}

	moved, err := c.broadcasts.Transition(ctx, broadcastID, models.BroadcastDraft, models.BroadcastScheduled)
	if err != nil {
		return err
	}
	if !moved {
		return errors.NewInvalidStateError(
			fmt.Sprintf("broadcast %s changed state concurrently", broadcastID))
	}

	delay := time.Duration(0)
	if b.ScheduledAt != nil {
		if d := time.Until(*b.ScheduledAt); d > 0 {
			delay = d
		}
	}

	job, err := queue.NewJob(JobTypeProcessBroadcast, BroadcastJobPayload{BroadcastID: broadcastID})
	if err != nil {
		return fmt.Errorf("build broadcast job: %w", err)
	}
	if err := c.enqueuer.Enqueue(ctx, job, delay); err != nil {
		return fmt.Errorf("enqueue broadcast %s: %w", broadcastID, err)
	}

	c.log.Info("broadcast scheduled", map[string]interface{}{
		"broadcast_id": broadcastID,
		"delay":        delay.String(),
	})
	return nil
}

// Cancel stops a broadcast that has not begun fan-out. Once sending starts
// the jobs are already queued and cancellation is refused.
func (c *BroadcastControl) Cancel(ctx context.Context, broadcastID string) error {
	for _, from := range []models.BroadcastStatus{models.BroadcastDraft, models.BroadcastScheduled} {
		moved, err := c.broadcasts.Transition(ctx, broadcastID, from, models.BroadcastCanceled)
		if err != nil {
			return err
		}
		if moved {
			c.log.Info("broadcast canceled", map[string]interface{}{"broadcast_id": broadcastID})
			return nil
		}
	}
	b, err := c.broadcasts.GetByID(ctx, broadcastID)
	if err != nil {
		return err
	}
	return errors.NewInvalidStateError(
		fmt.Sprintf("broadcast %s is %s and can no longer be canceled", broadcastID, b.Status))
}
