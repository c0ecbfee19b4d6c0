// Package sendnotification delivers one pending notification through its
// channel backend. Delivery is at-least-once: the handler re-checks the row
// status before sending so a redelivered job never sends twice.
package sendnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notification-engine/internal/audit"
	"notification-engine/internal/backends"
	"notification-engine/internal/common/errors"
	"notification-engine/internal/common/logger"
	"notification-engine/internal/common/metrics"
	"notification-engine/internal/dispatch"
	"notification-engine/internal/models"
	"notification-engine/internal/queue"
)

const TaskType = dispatch.JobTypeSendNotification

type Handler struct {
	config        *Config
	notifications NotificationStore
	broadcasts    BroadcastCounters
	email         backends.EmailBackend
	sms           backends.SMSBackend
	audit         *audit.Indexer
	logger        logger.Logger
}

func NewHandler(config *Config, notifications NotificationStore, broadcasts BroadcastCounters,
	email backends.EmailBackend, sms backends.SMSBackend, auditor *audit.Indexer, log logger.Logger) *Handler {
	return &Handler{
		config:        config,
		notifications: notifications,
		broadcasts:    broadcasts,
		email:         email,
		sms:           sms,
		audit:         auditor,
		logger:        log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(ctx context.Context, job *queue.Job) queue.Result {
	var payload dispatch.SendJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return queue.Failed(fmt.Errorf("parse payload: %w", err))
	}

	log := h.logger.WithFields(map[string]interface{}{
		"notification_id": payload.NotificationID,
		"attempt":         job.Attempt,
	})

	n, err := h.notifications.GetByID(ctx, payload.NotificationID)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			log.Warn("notification vanished before delivery", nil)
			return queue.Failed(err)
		}
		// Database hiccup: let the job come back.
		return queue.Retry(h.config.BackoffFor(job.Attempt), err)
	}

	if n.Status.IsTerminal() {
		log.Info("notification already terminal, skipping redelivery", map[string]interface{}{
			"status": string(n.Status),
		})
		return queue.Done()
	}

	start := time.Now()
	sendErr := h.send(ctx, n)
	metrics.SendAttemptDuration.WithLabelValues(string(n.Channel)).Observe(time.Since(start).Seconds())

	if sendErr == nil {
		return h.completeSent(ctx, n, job, log)
	}

	if errors.IsRetryable(sendErr) && job.Attempt < h.config.MaxRetries {
		metrics.SendRetries.WithLabelValues(string(n.Channel)).Inc()
		return queue.Retry(h.config.BackoffFor(job.Attempt), sendErr)
	}

	return h.completeFailed(ctx, n, job, sendErr, log)
}

func (h *Handler) send(ctx context.Context, n *models.Notification) error {
	switch n.Channel {
	case models.ChannelEmail:
		return h.email.SendEmail(ctx, &backends.Email{
			To:      n.Recipient,
			Subject: n.Subject,
			Body:    n.Body,
		})
	case models.ChannelSMS:
		return h.sms.SendSMS(ctx, n.PhoneNumber, n.Body)
	default:
		return errors.NewSendError(fmt.Sprintf("unknown channel %q", n.Channel), false)
	}
}

func (h *Handler) completeSent(ctx context.Context, n *models.Notification, job *queue.Job, log logger.Logger) queue.Result {
	sentAt := time.Now().UTC()
	moved, err := h.notifications.MarkSent(ctx, n.ID, sentAt)
	if err != nil {
		return queue.Retry(h.config.BackoffFor(job.Attempt), err)
	}
	if !moved {
		// Lost the race against another delivery of the same job. The other
		// copy owns the counters.
		log.Info("notification marked terminal by a concurrent delivery", nil)
		return queue.Done()
	}

	if n.BroadcastID != nil {
		if err := h.broadcasts.IncrementSent(ctx, *n.BroadcastID); err != nil {
			log.WithError(err).Error("increment broadcast sent_count failed", map[string]interface{}{
				"broadcast_id": *n.BroadcastID,
			})
		}
	}

	metrics.NotificationsSent.WithLabelValues(string(n.Channel)).Inc()
	n.Status = models.NotificationSent
	n.SentAt = &sentAt
	h.audit.RecordOutcome(ctx, n, job.Attempt+1)

	log.Info("notification sent", map[string]interface{}{"channel": string(n.Channel)})
	return queue.Done()
}

func (h *Handler) completeFailed(ctx context.Context, n *models.Notification, job *queue.Job, sendErr error, log logger.Logger) queue.Result {
	moved, err := h.notifications.MarkFailed(ctx, n.ID, sendErr.Error())
	if err != nil {
		return queue.Retry(h.config.BackoffFor(job.Attempt), err)
	}
	if !moved {
		log.Info("notification marked terminal by a concurrent delivery", nil)
		return queue.Done()
	}

	if n.BroadcastID != nil {
		line := fmt.Sprintf("%s: %v", deliveryAddress(n), sendErr)
		if err := h.broadcasts.IncrementFailed(ctx, *n.BroadcastID, line); err != nil {
			log.WithError(err).Error("increment broadcast failed_count failed", map[string]interface{}{
				"broadcast_id": *n.BroadcastID,
			})
		}
	}

	metrics.NotificationsFailed.WithLabelValues(string(n.Channel), string(errors.CodeOf(sendErr))).Inc()
	n.Status = models.NotificationFailed
	n.ErrorMessage = sendErr.Error()
	h.audit.RecordOutcome(ctx, n, job.Attempt+1)

	log.WithError(sendErr).Error("notification failed permanently", map[string]interface{}{
		"channel": string(n.Channel),
	})
	return queue.Failed(sendErr)
}

func deliveryAddress(n *models.Notification) string {
	if n.Channel == models.ChannelSMS {
		return n.PhoneNumber
	}
	return n.Recipient
}
