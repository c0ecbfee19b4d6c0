// Package queue implements a delayed job queue on a Redis sorted set. The
// member is the serialized job, the score is the time the job becomes ready.
// Claiming a job atomically pushes its score forward by the visibility
// timeout, so a worker that dies mid-job simply lets the job reappear.
// Delivery is therefore at-least-once; handlers must be idempotent.
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of work. Type selects the registered handler, Payload is
// handler-defined JSON, and Attempt counts completed delivery attempts.
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewJob builds a job with a fresh ID and the payload marshaled to JSON.
func NewJob(jobType string, payload interface{}) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

func (j *Job) encode() (string, error) {
	raw, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeJob(member string) (*Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(member), &j); err != nil {
		return nil, err
	}
	return &j, nil
}
