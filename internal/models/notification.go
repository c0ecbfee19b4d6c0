package models

import "time"

// Notification is the durable log of a single delivery attempt. The row
// survives user deletion (UserID is nullable) and Context holds only primitive
// values so the audit trail stays serializable and replayable.
type Notification struct {
	ID           string                 `json:"id"`
	UserID       *string                `json:"userId,omitempty"`
	Recipient    string                 `json:"recipient,omitempty"`   // email address
	PhoneNumber  string                 `json:"phoneNumber,omitempty"`
	Channel      Channel                `json:"channel"`
	Subject      string                 `json:"subject,omitempty"`
	Body         string                 `json:"body"`
	Status       NotificationStatus     `json:"status"`
	BroadcastID  *string                `json:"broadcastId,omitempty"`
	TemplateID   *string                `json:"templateId,omitempty"`
	Context      map[string]interface{} `json:"context,omitempty"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	SentAt       *time.Time             `json:"sentAt,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}
