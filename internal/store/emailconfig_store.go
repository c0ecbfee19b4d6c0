package store

import (
	"context"
	"database/sql"
	"fmt"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/models"
)

type EmailConfigStore struct {
	db *sql.DB
}

func NewEmailConfigStore(db *sql.DB) *EmailConfigStore {
	return &EmailConfigStore{db: db}
}

// GetActive returns the currently active SMTP configuration, or nil when none
// is active. Callers fall back to the static config in that case.
func (s *EmailConfigStore) GetActive(ctx context.Context) (*models.EmailConfiguration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, host, port, username, password, use_tls, use_ssl,
		       from_email, reply_to, timeout, is_active, created_at, updated_at
		FROM email_configurations WHERE is_active = TRUE`)

	var cfg models.EmailConfiguration
	err := row.Scan(
		&cfg.ID, &cfg.Name, &cfg.Host, &cfg.Port, &cfg.Username, &cfg.Password,
		&cfg.UseTLS, &cfg.UseSSL, &cfg.FromEmail, &cfg.ReplyTo, &cfg.Timeout,
		&cfg.Active, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select active email configuration: %w", err)
	}
	return &cfg, nil
}

// Activate makes one configuration active and deactivates every other inside
// a single transaction, so exactly one is active at any point in time.
func (s *EmailConfigStore) Activate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE email_configurations SET is_active = FALSE, updated_at = NOW()
		WHERE is_active = TRUE AND id <> $1`, id); err != nil {
		return fmt.Errorf("deactivate email configurations: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE email_configurations SET is_active = TRUE, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("activate email configuration %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return errors.NewNotFoundError("email configuration", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activate transaction: %w", err)
	}
	return nil
}
