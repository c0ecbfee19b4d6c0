package backends

import (
	"context"

	"notification-engine/internal/common/logger"
)

// ConsoleSMSBackend writes SMS messages to the log instead of a carrier.
// The development default, and what tests hand to the worker when the SMS
// path is not under test.
type ConsoleSMSBackend struct {
	log logger.Logger
}

func NewConsoleSMSBackend(log logger.Logger) *ConsoleSMSBackend {
	return &ConsoleSMSBackend{log: log}
}

func (b *ConsoleSMSBackend) SendSMS(ctx context.Context, phoneNumber, body string) error {
	b.log.Info("console sms", map[string]interface{}{
		"phone_number": phoneNumber,
		"body":         body,
	})
	return nil
}
