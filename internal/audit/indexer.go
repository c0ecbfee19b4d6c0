// Package audit mirrors terminal delivery outcomes into Elasticsearch so
// operators can search the delivery history without touching the primary
// database. Indexing is best effort: a down cluster never blocks or retries
// a delivery.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"notification-engine/internal/common/logger"
	"notification-engine/internal/models"
)

const indexName = "notification-deliveries"

// Entry is one terminal delivery outcome as stored in the index.
type Entry struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id,omitempty"`
	BroadcastID    string    `json:"broadcast_id,omitempty"`
	Channel        string    `json:"channel"`
	Status         string    `json:"status"`
	Recipient      string    `json:"recipient,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Attempts       int       `json:"attempts"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Indexer writes delivery outcomes. A nil Indexer is valid and drops
// everything, so callers never need to branch on whether audit is enabled.
type Indexer struct {
	client *elasticsearch.Client
	log    logger.Logger
}

func NewIndexer(client *elasticsearch.Client, log logger.Logger) *Indexer {
	return &Indexer{client: client, log: log}
}

// RecordOutcome indexes the terminal state of a notification. Errors are
// logged and swallowed.
func (i *Indexer) RecordOutcome(ctx context.Context, n *models.Notification, attempts int) {
	if i == nil || i.client == nil {
		return
	}

	entry := Entry{
		NotificationID: n.ID,
		Channel:        string(n.Channel),
		Status:         string(n.Status),
		Recipient:      n.Recipient,
		ErrorMessage:   n.ErrorMessage,
		Attempts:       attempts,
		RecordedAt:     time.Now().UTC(),
	}
	if n.Channel == models.ChannelSMS {
		entry.Recipient = n.PhoneNumber
	}
	if n.UserID != nil {
		entry.UserID = *n.UserID
	}
	if n.BroadcastID != nil {
		entry.BroadcastID = *n.BroadcastID
	}

	body, err := json.Marshal(entry)
	if err != nil {
		i.log.WithError(err).Warn("audit entry marshal failed", map[string]interface{}{
			"notification_id": n.ID,
		})
		return
	}

	res, err := i.client.Index(indexName, bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(n.ID),
	)
	if err != nil {
		i.log.WithError(err).Warn("audit index failed", map[string]interface{}{
			"notification_id": n.ID,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.log.WithError(fmt.Errorf("elasticsearch: %s", res.Status())).
			Warn("audit index rejected", map[string]interface{}{
				"notification_id": n.ID,
			})
	}
}
