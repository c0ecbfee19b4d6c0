package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"notification-engine/internal/common/metrics"
)

// claimScript pops the oldest ready job and reschedules it past the
// visibility timeout in one atomic step. KEYS[1] is the queue, ARGV[1] the
// current time in unix milliseconds, ARGV[2] the visibility timeout in
// milliseconds. Returns the claimed member or false.
var claimScript = redis.NewScript(`
	local ready = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
	if #ready == 0 then
		return false
	end
	redis.call('ZADD', KEYS[1], 'XX', tonumber(ARGV[1]) + tonumber(ARGV[2]), ready[1])
	return ready[1]
`)

// rescheduleScript swaps a claimed member for its attempt-bumped copy in one
// atomic step. KEYS[1] is the queue, ARGV[1] the old member, ARGV[2] the new
// ready time in unix milliseconds, ARGV[3] the new member. Removing and
// re-adding separately would open a window where neither copy exists.
var rescheduleScript = redis.NewScript(`
	redis.call('ZREM', KEYS[1], ARGV[1])
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
	return 1
`)

// RedisQueue stores delayed jobs in a sorted set keyed by ready time.
type RedisQueue struct {
	client            *redis.Client
	key               string
	visibilityTimeout time.Duration
}

func NewRedisQueue(client *redis.Client, key string, visibilityTimeout time.Duration) *RedisQueue {
	if visibilityTimeout <= 0 {
		visibilityTimeout = time.Minute
	}
	return &RedisQueue{client: client, key: key, visibilityTimeout: visibilityTimeout}
}

// Enqueue schedules a job to become ready after the given delay. A zero
// delay makes it ready immediately.
func (q *RedisQueue) Enqueue(ctx context.Context, job *Job, delay time.Duration) error {
	member, err := job.encode()
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	readyAt := time.Now().Add(delay)
	err = q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Claim returns the oldest ready job, or nil when none is ready. The claimed
// job stays in the set with its score pushed past the visibility timeout; it
// reappears if the worker never acks it.
func (q *RedisQueue) Claim(ctx context.Context) (*Job, error) {
	now := time.Now().UnixMilli()
	res, err := claimScript.Run(ctx, q.client, []string{q.key},
		now, q.visibilityTimeout.Milliseconds()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	member, ok := res.(string)
	if !ok {
		return nil, nil
	}

	job, err := decodeJob(member)
	if err != nil {
		return nil, fmt.Errorf("decode claimed job: %w", err)
	}
	return job, nil
}

// Ack removes a finished job from the set. Idempotent: acking a job that was
// already removed is a no-op.
func (q *RedisQueue) Ack(ctx context.Context, job *Job) error {
	member, err := job.encode()
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := q.client.ZRem(ctx, q.key, member).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", job.ID, err)
	}
	return nil
}

// Reschedule re-enqueues a claimed job for another attempt after the delay.
// The old member is replaced in a single script call so the attempt counter
// advances exactly once and the job survives a crash mid-reschedule.
func (q *RedisQueue) Reschedule(ctx context.Context, job *Job, delay time.Duration) error {
	old, err := job.encode()
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	next := *job
	next.Attempt = job.Attempt + 1
	bumped, err := next.encode()
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	readyAt := time.Now().Add(delay)
	err = rescheduleScript.Run(ctx, q.client, []string{q.key},
		old, readyAt.UnixMilli(), bumped).Err()
	if err != nil {
		return fmt.Errorf("reschedule job %s: %w", job.ID, err)
	}
	return nil
}

// Depth reports how many jobs are ready right now, and feeds the queue gauge.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	now := time.Now().UnixMilli()
	n, err := q.client.ZCount(ctx, q.key, "-inf", fmt.Sprintf("%d", now)).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	metrics.QueueJobsReady.WithLabelValues(q.key).Set(float64(n))
	return n, nil
}
