package backends

import (
	"context"
	"fmt"

	"notification-engine/internal/models"
)

// ActiveConfigSource yields the currently active SMTP configuration, or nil
// when none is active.
type ActiveConfigSource interface {
	GetActive(ctx context.Context) (*models.EmailConfiguration, error)
}

// ConfiguredEmailBackend resolves the active EmailConfiguration on every
// send, so an admin switching the active row takes effect on the very next
// delivery without a restart. Falls back to the static settings when no row
// is active.
type ConfiguredEmailBackend struct {
	source   ActiveConfigSource
	fallback SMTPSettings
}

func NewConfiguredEmailBackend(source ActiveConfigSource, fallback SMTPSettings) *ConfiguredEmailBackend {
	return &ConfiguredEmailBackend{source: source, fallback: fallback}
}

func (b *ConfiguredEmailBackend) SendEmail(ctx context.Context, email *Email) error {
	settings, err := b.resolve(ctx)
	if err != nil {
		return err
	}
	return NewSMTPBackend(settings).SendEmail(ctx, email)
}

func (b *ConfiguredEmailBackend) resolve(ctx context.Context) (SMTPSettings, error) {
	cfg, err := b.source.GetActive(ctx)
	if err != nil {
		return SMTPSettings{}, fmt.Errorf("resolve active email configuration: %w", err)
	}
	if cfg == nil {
		return b.fallback, nil
	}
	return SMTPSettings{
		Host:      cfg.Host,
		Port:      cfg.Port,
		Username:  cfg.Username,
		Password:  cfg.Password,
		UseTLS:    cfg.UseTLS,
		UseSSL:    cfg.UseSSL,
		FromEmail: cfg.FromEmail,
		ReplyTo:   cfg.ReplyTo,
	}, nil
}
