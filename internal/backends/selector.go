package backends

import (
	"context"
	"fmt"

	"notification-engine/internal/common/config"
	"notification-engine/internal/common/logger"
)

// SelectEmailBackend builds the email transport configured for this
// deployment. SES when enabled, otherwise SMTP with the active
// EmailConfiguration overriding the static settings.
func SelectEmailBackend(ctx context.Context, cfg *config.Config, source ActiveConfigSource) (EmailBackend, error) {
	if cfg.Email.SES.Enabled {
		backend, err := NewSESBackend(ctx, cfg.Email.SES.Region, cfg.Email.SES.FromEmail)
		if err != nil {
			return nil, fmt.Errorf("build SES backend: %w", err)
		}
		return backend, nil
	}

	fallback := SMTPSettings{
		Host:      cfg.Email.SMTP.Host,
		Port:      cfg.Email.SMTP.Port,
		Username:  cfg.Email.SMTP.Username,
		Password:  cfg.Email.SMTP.Password,
		UseTLS:    cfg.Email.SMTP.UseTLS,
		FromEmail: cfg.Email.SMTP.DefaultFrom,
	}
	return NewConfiguredEmailBackend(source, fallback), nil
}

// SelectSMSBackend builds the SMS transport. "sns" goes to Amazon SNS,
// anything else logs to the console.
func SelectSMSBackend(ctx context.Context, cfg *config.Config, log logger.Logger) (SMSBackend, error) {
	if cfg.SMS.Backend == "sns" {
		backend, err := NewSNSBackend(ctx, cfg.SMS.SNS.Region, cfg.SMS.SNS.SenderID)
		if err != nil {
			return nil, fmt.Errorf("build SNS backend: %w", err)
		}
		return backend, nil
	}
	return NewConsoleSMSBackend(log), nil
}
