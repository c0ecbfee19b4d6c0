package models

// Channel is the delivery medium for a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// NotificationStatus tracks one delivery attempt's lifecycle. A notification
// is created pending and moves exactly once to a terminal state.
type NotificationStatus string

const (
	NotificationPending  NotificationStatus = "pending"
	NotificationSent     NotificationStatus = "sent"
	NotificationFailed   NotificationStatus = "failed"
	NotificationCanceled NotificationStatus = "canceled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s NotificationStatus) IsTerminal() bool {
	return s != NotificationPending
}

// BroadcastStatus is the broadcast state machine:
// draft -> scheduled -> sending -> sent. Canceled is reachable only before
// fan-out begins; nothing revokes jobs already queued.
type BroadcastStatus string

const (
	BroadcastDraft     BroadcastStatus = "draft"
	BroadcastScheduled BroadcastStatus = "scheduled"
	BroadcastSending   BroadcastStatus = "sending"
	BroadcastSent      BroadcastStatus = "sent"
	BroadcastFailed    BroadcastStatus = "failed"
	BroadcastCanceled  BroadcastStatus = "canceled"
)

// TemplateType mirrors Channel for templates.
type TemplateType string

const (
	TemplateEmail TemplateType = "email"
	TemplateSMS   TemplateType = "sms"
)
