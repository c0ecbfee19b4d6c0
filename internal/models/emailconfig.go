package models

import "time"

// EmailConfiguration stores SMTP settings for sending emails. Only one
// configuration can be active at a time; activating one deactivates the rest
// in the same transaction.
type EmailConfiguration struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"` // e.g., SendGrid, Gmail
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"username,omitempty"`
	Password  string    `json:"-"`
	UseTLS    bool      `json:"useTls"`
	UseSSL    bool      `json:"useSsl"`
	FromEmail string    `json:"fromEmail"`
	ReplyTo   string    `json:"replyTo,omitempty"`
	Timeout   int       `json:"timeout"` // seconds
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
