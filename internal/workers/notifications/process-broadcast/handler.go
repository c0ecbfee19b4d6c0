// Package processbroadcast runs a broadcast's fan-out: freeze the recipient
// count, walk the filtered population, and put one dispatch through the
// pipeline per recipient. The scheduled-to-sending guard makes a redelivered
// fan-out job a no-op, so recipients are never enqueued twice.
package processbroadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/common/logger"
	"notification-engine/internal/common/metrics"
	"notification-engine/internal/dispatch"
	"notification-engine/internal/models"
	"notification-engine/internal/queue"
)

const TaskType = dispatch.JobTypeProcessBroadcast

type Handler struct {
	config     *Config
	broadcasts BroadcastStore
	users      UserStreams
	dispatcher Dispatcher
	logger     logger.Logger
}

func NewHandler(config *Config, broadcasts BroadcastStore, users UserStreams,
	dispatcher Dispatcher, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		broadcasts: broadcasts,
		users:      users,
		dispatcher: dispatcher,
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(ctx context.Context, job *queue.Job) queue.Result {
	var payload dispatch.BroadcastJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return queue.Failed(fmt.Errorf("parse payload: %w", err))
	}

	log := h.logger.WithFields(map[string]interface{}{
		"broadcast_id": payload.BroadcastID,
		"attempt":      job.Attempt,
	})

	b, err := h.broadcasts.GetByID(ctx, payload.BroadcastID)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			log.Warn("broadcast vanished before fan-out", nil)
			return queue.Failed(err)
		}
		return queue.Retry(time.Minute, err)
	}

	if b.Status != models.BroadcastScheduled {
		// Either another worker already owns the fan-out or the broadcast
		// was canceled. Both mean this delivery has nothing to do.
		log.Info("broadcast not scheduled, dropping fan-out job", map[string]interface{}{
			"status": string(b.Status),
		})
		return queue.Done()
	}

	total, err := h.users.CountByFilter(ctx, b.RecipientFilter)
	if err != nil {
		return h.failBroadcast(ctx, b, err, log)
	}

	moved, err := h.broadcasts.BeginSending(ctx, b.ID, total)
	if err != nil {
		return queue.Retry(time.Minute, err)
	}
	if !moved {
		log.Info("another worker began this fan-out first", nil)
		return queue.Done()
	}

	log.Info("broadcast fan-out started", map[string]interface{}{
		"total_recipients": total,
		"channel":          string(b.Channel),
	})

	start := time.Now()
	if err := h.fanOut(ctx, b); err != nil {
		return h.failBroadcast(ctx, b, err, log)
	}
	metrics.BroadcastFanoutDuration.Observe(time.Since(start).Seconds())

	moved, err = h.broadcasts.Complete(ctx, b.ID, time.Now().UTC())
	if err != nil {
		return queue.Retry(time.Minute, err)
	}
	if moved {
		metrics.BroadcastsCompleted.Inc()
		log.Info("broadcast fan-out complete", map[string]interface{}{
			"total_recipients": total,
		})
	}
	return queue.Done()
}

// fanOut dispatches to every recipient. Per-recipient failures are recorded
// on the broadcast and do not stop the walk; only a failure of the walk
// itself comes back as an error.
func (h *Handler) fanOut(ctx context.Context, b *models.Broadcast) error {
	broadcastCtx := map[string]interface{}{
		"broadcast_name": b.Name,
	}

	return h.users.StreamByFilter(ctx, b.RecipientFilter, h.config.BatchSize, func(u *models.User) error {
		_, err := h.dispatcher.Send(ctx, &dispatch.Request{
			UserID:      u.ID,
			Channel:     b.Channel,
			TemplateID:  b.TemplateID,
			Context:     broadcastCtx,
			BroadcastID: b.ID,
		})
		if err != nil {
			line := fmt.Sprintf("%s: %v", u.Email, err)
			if incErr := h.broadcasts.IncrementFailed(ctx, b.ID, line); incErr != nil {
				h.logger.WithError(incErr).Error("record recipient failure failed", map[string]interface{}{
					"broadcast_id": b.ID,
					"user_id":      u.ID,
				})
			}
		}
		return nil
	})
}

func (h *Handler) failBroadcast(ctx context.Context, b *models.Broadcast, cause error, log logger.Logger) queue.Result {
	log.WithError(cause).Error("broadcast fan-out failed", nil)
	if err := h.broadcasts.Fail(ctx, b.ID, cause.Error()); err != nil {
		log.WithError(err).Error("mark broadcast failed errored", nil)
	}
	return queue.Failed(cause)
}
