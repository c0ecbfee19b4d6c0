package models

import "time"

// Broadcast sends one template to a dynamically filtered set of recipients.
// Counters are only ever incremented, each bounded by TotalRecipients, and
// sent + failed never exceeds total once fan-out begins.
type Broadcast struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	TemplateID      string                 `json:"templateId"`
	Channel         Channel                `json:"channel"`
	RecipientFilter map[string]interface{} `json:"recipientFilter"`
	ScheduledAt     *time.Time             `json:"scheduledAt,omitempty"`
	Status          BroadcastStatus        `json:"status"`
	TotalRecipients int64                  `json:"totalRecipients"`
	SentCount       int64                  `json:"sentCount"`
	FailedCount     int64                  `json:"failedCount"`
	CompletedAt     *time.Time             `json:"completedAt,omitempty"`
	ErrorLog        string                 `json:"errorLog,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}
