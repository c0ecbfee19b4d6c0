package dispatch

import (
	"context"

	"notification-engine/internal/common/logger"
	"notification-engine/internal/models"
)

// SettingsSource loads a user's notification preferences. A nil result with
// no error means the user has never saved preferences.
type SettingsSource interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserNotificationSetting, error)
}

// PreferenceGate decides whether a user should receive a message on a
// channel. It fails open: no settings row, or a settings lookup error, lets
// the message through. A missed opt-out beats a silently dropped security
// email.
type PreferenceGate struct {
	settings SettingsSource
	log      logger.Logger
}

func NewPreferenceGate(settings SettingsSource, log logger.Logger) *PreferenceGate {
	return &PreferenceGate{settings: settings, log: log}
}

// Allows reports whether the channel is enabled for the user.
func (g *PreferenceGate) Allows(ctx context.Context, userID string, channel models.Channel) bool {
	if userID == "" {
		// Direct-recipient sends have nobody to consult.
		return true
	}

	setting, err := g.settings.GetByUserID(ctx, userID)
	if err != nil {
		g.log.WithError(err).Warn("preference lookup failed, sending anyway", map[string]interface{}{
			"user_id": userID,
			"channel": string(channel),
		})
		return true
	}
	if setting == nil {
		return true
	}

	switch channel {
	case models.ChannelEmail:
		return setting.EmailEnabled
	case models.ChannelSMS:
		return setting.SMSEnabled
	default:
		return true
	}
}
