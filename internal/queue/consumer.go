package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notification-engine/internal/common/logger"
)

// Consumer polls the queue and fans claimed jobs out to registered handlers
// by job type. One consumer runs one polling goroutine; concurrency comes
// from running several consumers against the same queue, which the claim
// script keeps safe.
type Consumer struct {
	queue        *RedisQueue
	log          logger.Logger
	pollInterval time.Duration
	jobTimeout   time.Duration

	mu       sync.RWMutex
	handlers map[string]registration
}

// registration pairs a handler with its own deadline. A fan-out job needs
// minutes where a single delivery needs seconds.
type registration struct {
	handler Handler
	timeout time.Duration
}

func NewConsumer(queue *RedisQueue, log logger.Logger, pollInterval, jobTimeout time.Duration) *Consumer {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &Consumer{
		queue:        queue,
		log:          log,
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
		handlers:     make(map[string]registration),
	}
}

// Register binds a handler to a job type with a per-job deadline. A zero
// timeout falls back to the consumer default. Registering the same type
// twice replaces the previous handler.
func (c *Consumer) Register(jobType string, handler Handler, timeout time.Duration) {
	if timeout <= 0 {
		timeout = c.jobTimeout
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[jobType] = registration{handler: handler, timeout: timeout}
}

// Run polls until the context is canceled. It drains ready jobs back to back
// and only sleeps when the queue comes up empty.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("queue consumer started", map[string]interface{}{
		"poll_interval": c.pollInterval.String(),
	})

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		processed, err := c.ProcessOne(ctx)
		if err != nil {
			c.log.WithError(err).Error("queue poll failed", nil)
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			c.log.Info("queue consumer stopping", nil)
			return ctx.Err()
		case <-ticker.C:
			// Idle tick: refresh the ready-jobs gauge while we are
			// not draining.
			if _, err := c.queue.Depth(ctx); err != nil {
				c.log.WithError(err).Warn("queue depth probe failed", nil)
			}
		}
	}
}

// ProcessOne claims and handles a single job. Returns false when nothing was
// ready. Exported so tests and the broadcast fan-out can drive the queue
// synchronously.
func (c *Consumer) ProcessOne(ctx context.Context) (bool, error) {
	job, err := c.queue.Claim(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	c.mu.RLock()
	reg, ok := c.handlers[job.Type]
	c.mu.RUnlock()
	if !ok {
		// A job type nobody registered is a deploy mismatch, not a
		// transient fault. Drop it rather than loop forever.
		c.log.Error("no handler registered for job type", map[string]interface{}{
			"job_id":   job.ID,
			"job_type": job.Type,
		})
		return true, c.queue.Ack(ctx, job)
	}

	jobCtx, cancel := context.WithTimeout(ctx, reg.timeout)
	result := c.safeHandle(jobCtx, reg.handler, job)
	cancel()

	switch result.kind {
	case resultRetry:
		c.log.WithError(result.err).Warn("job scheduled for retry", map[string]interface{}{
			"job_id":   job.ID,
			"job_type": job.Type,
			"attempt":  job.Attempt,
			"delay":    result.after.String(),
		})
		return true, c.queue.Reschedule(ctx, job, result.after)
	case resultFailed:
		c.log.WithError(result.err).Error("job failed permanently", map[string]interface{}{
			"job_id":   job.ID,
			"job_type": job.Type,
			"attempt":  job.Attempt,
		})
		return true, c.queue.Ack(ctx, job)
	default:
		return true, c.queue.Ack(ctx, job)
	}
}

// safeHandle turns a handler panic into a retry instead of taking the whole
// consumer down.
func (c *Consumer) safeHandle(ctx context.Context, handler Handler, job *Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Retry(c.pollInterval, fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler.Handle(ctx, job)
}
