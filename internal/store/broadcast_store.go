package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/models"
)

type BroadcastStore struct {
	db *sql.DB
}

func NewBroadcastStore(db *sql.DB) *BroadcastStore {
	return &BroadcastStore{db: db}
}

// GetByID loads a broadcast, returning NOT_FOUND when the record vanished.
func (s *BroadcastStore) GetByID(ctx context.Context, id string) (*models.Broadcast, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, template_id, channel, recipient_filter, scheduled_at, status,
		       total_recipients, sent_count, failed_count, completed_at, error_log,
		       created_at, updated_at
		FROM broadcasts WHERE id = $1`, id)

	var (
		b          models.Broadcast
		channel    string
		status     string
		filterJSON []byte
	)
	err := row.Scan(
		&b.ID, &b.Name, &b.TemplateID, &channel, &filterJSON, &b.ScheduledAt, &status,
		&b.TotalRecipients, &b.SentCount, &b.FailedCount, &b.CompletedAt, &b.ErrorLog,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("broadcast", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select broadcast %s: %w", id, err)
	}

	b.Channel = models.Channel(channel)
	b.Status = models.BroadcastStatus(status)

	if len(filterJSON) > 0 {
		if err := json.Unmarshal(filterJSON, &b.RecipientFilter); err != nil {
			return nil, fmt.Errorf("unmarshal recipient filter: %w", err)
		}
	}
	return &b, nil
}

// Transition moves a broadcast from one status to another. The from-status
// guard makes every transition race-safe: returns false when another worker
// got there first.
func (s *BroadcastStore) Transition(ctx context.Context, id string, from, to models.BroadcastStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE broadcasts SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("transition broadcast %s %s->%s: %w", id, from, to, err)
	}
	return oneRowAffected(res)
}

// BeginSending freezes the recipient count and moves the broadcast from
// scheduled to sending in one statement.
func (s *BroadcastStore) BeginSending(ctx context.Context, id string, totalRecipients int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE broadcasts SET status = $3, total_recipients = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, string(models.BroadcastScheduled), string(models.BroadcastSending), totalRecipients,
	)
	if err != nil {
		return false, fmt.Errorf("begin sending broadcast %s: %w", id, err)
	}
	return oneRowAffected(res)
}

// IncrementSent bumps sent_count by one. A single atomic UPDATE, never a
// read-then-write, so concurrent workers cannot lose updates.
func (s *BroadcastStore) IncrementSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE broadcasts SET sent_count = sent_count + 1, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment sent_count for broadcast %s: %w", id, err)
	}
	return nil
}

// IncrementFailed bumps failed_count by one, optionally appending a line to
// the error log in the same statement.
func (s *BroadcastStore) IncrementFailed(ctx context.Context, id, errorLine string) error {
	var err error
	if errorLine == "" {
		_, err = s.db.ExecContext(ctx, `
			UPDATE broadcasts SET failed_count = failed_count + 1, updated_at = NOW()
			WHERE id = $1`, id)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE broadcasts
			SET failed_count = failed_count + 1,
			    error_log = error_log || $2,
			    updated_at = NOW()
			WHERE id = $1`, id, errorLine+"\n")
	}
	if err != nil {
		return fmt.Errorf("increment failed_count for broadcast %s: %w", id, err)
	}
	return nil
}

// Complete marks the fan-out finished. Partial failure does not block
// completion; the broadcast still ends up sent with its counters telling the
// story.
func (s *BroadcastStore) Complete(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE broadcasts SET status = $3, completed_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, string(models.BroadcastSending), string(models.BroadcastSent), completedAt,
	)
	if err != nil {
		return false, fmt.Errorf("complete broadcast %s: %w", id, err)
	}
	return oneRowAffected(res)
}

// Fail records a fan-out that could not run at all (bad filter, missing
// template). Valid from scheduled or sending.
func (s *BroadcastStore) Fail(ctx context.Context, id, errorLog string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE broadcasts
		SET status = $2, error_log = error_log || $3, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)`,
		id, string(models.BroadcastFailed), errorLog+"\n",
		string(models.BroadcastScheduled), string(models.BroadcastSending),
	)
	if err != nil {
		return fmt.Errorf("fail broadcast %s: %w", id, err)
	}
	return nil
}
