// Package store contains the PostgreSQL repositories for the notification
// engine. All state transitions are guarded in SQL so concurrent workers can
// never move a record backwards, and broadcast counters are incremented with
// single atomic UPDATEs rather than read-modify-write.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/models"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationColumns = `id, user_id, recipient, phone_number, channel, subject, body,
	status, broadcast_id, template_id, context, error_message, sent_at, created_at`

// Create persists a new pending notification. The ID is assigned here when the
// caller left it empty.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	contextJSON, err := json.Marshal(n.Context)
	if err != nil {
		return fmt.Errorf("marshal notification context: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, user_id, recipient, phone_number, channel, subject, body,
			 status, broadcast_id, template_id, context, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		n.ID, n.UserID, n.Recipient, n.PhoneNumber, string(n.Channel), n.Subject, n.Body,
		string(n.Status), n.BroadcastID, n.TemplateID, contextJSON, n.ErrorMessage, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// GetByID loads a notification, returning NOT_FOUND when the record vanished.
func (s *NotificationStore) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)

	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("notification", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select notification %s: %w", id, err)
	}
	return n, nil
}

// MarkSent transitions a pending notification to sent. Returns false without
// error when the notification already left pending: re-delivery from the
// at-least-once queue must be a no-op.
func (s *NotificationStore) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = $2, sent_at = $3
		WHERE id = $1 AND status = $4`,
		id, string(models.NotificationSent), sentAt, string(models.NotificationPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark notification %s sent: %w", id, err)
	}
	return oneRowAffected(res)
}

// MarkFailed transitions a pending notification to failed with the transport
// error message. Same idempotence contract as MarkSent.
func (s *NotificationStore) MarkFailed(ctx context.Context, id, errorMessage string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = $2, error_message = $3
		WHERE id = $1 AND status = $4`,
		id, string(models.NotificationFailed), errorMessage, string(models.NotificationPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark notification %s failed: %w", id, err)
	}
	return oneRowAffected(res)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n           models.Notification
		channel     string
		status      string
		contextJSON []byte
	)

	err := row.Scan(
		&n.ID, &n.UserID, &n.Recipient, &n.PhoneNumber, &channel, &n.Subject, &n.Body,
		&status, &n.BroadcastID, &n.TemplateID, &contextJSON, &n.ErrorMessage, &n.SentAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Channel = models.Channel(channel)
	n.Status = models.NotificationStatus(status)

	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &n.Context); err != nil {
			return nil, fmt.Errorf("unmarshal notification context: %w", err)
		}
	}
	return &n, nil
}

func oneRowAffected(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}
