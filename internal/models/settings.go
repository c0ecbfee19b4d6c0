package models

import "time"

// UserNotificationSetting holds per-user channel preferences. The absence of a
// row means "send anyway" (fail open), never fail closed.
type UserNotificationSetting struct {
	UserID                 string    `json:"userId"`
	EmailEnabled           bool      `json:"emailEnabled"`
	SMSEnabled             bool      `json:"smsEnabled"`
	ReceiveMarketingEmails bool      `json:"receiveMarketingEmails"`
	ReceiveSecurityEmails  bool      `json:"receiveSecurityEmails"`
	UpdatedAt              time.Time `json:"updatedAt"`
}
