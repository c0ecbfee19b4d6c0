package models

import "time"

// NotificationTemplate is a reusable email/SMS template. Edits only affect
// future renders; sent notifications keep their rendered content.
type NotificationTemplate struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        TemplateType `json:"type"`
	Subject     string       `json:"subject,omitempty"` // email only
	Body        string       `json:"body"`
	HTMLBody    string       `json:"htmlBody,omitempty"` // optional, email only
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
