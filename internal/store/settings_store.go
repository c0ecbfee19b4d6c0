package store

import (
	"context"
	"database/sql"
	"fmt"

	"notification-engine/internal/models"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetByUserID returns the user's notification preferences, or nil when no row
// exists. Absence is not an error: the preference gate fails open.
func (s *SettingsStore) GetByUserID(ctx context.Context, userID string) (*models.UserNotificationSetting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, email_enabled, sms_enabled,
		       receive_marketing_emails, receive_security_emails, updated_at
		FROM user_notification_settings WHERE user_id = $1`, userID)

	var setting models.UserNotificationSetting
	err := row.Scan(
		&setting.UserID, &setting.EmailEnabled, &setting.SMSEnabled,
		&setting.ReceiveMarketingEmails, &setting.ReceiveSecurityEmails, &setting.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select notification settings for user %s: %w", userID, err)
	}
	return &setting, nil
}

// EnsureExists lazily creates a default settings row on first access. Called
// from the identity store's user-creation path rather than a signal hook.
func (s *SettingsStore) EnsureExists(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_notification_settings
			(user_id, email_enabled, sms_enabled, receive_marketing_emails, receive_security_emails, updated_at)
		VALUES ($1, TRUE, FALSE, FALSE, TRUE, NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("ensure notification settings for user %s: %w", userID, err)
	}
	return nil
}
