// Package backends contains the channel transports. Every backend returns a
// SEND_FAILED error with an honest retryable flag; the worker layer decides
// what to do with it.
package backends

import "context"

// Email is a fully rendered message ready for transport.
type Email struct {
	To       string
	From     string
	ReplyTo  string
	Subject  string
	Body     string
	HTMLBody string
}

// EmailBackend delivers one email.
type EmailBackend interface {
	SendEmail(ctx context.Context, email *Email) error
}

// SMSBackend delivers one SMS body to a phone number.
type SMSBackend interface {
	SendSMS(ctx context.Context, phoneNumber, body string) error
}
