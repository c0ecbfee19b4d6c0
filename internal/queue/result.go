package queue

import (
	"context"
	"time"
)

type resultKind int

const (
	resultDone resultKind = iota
	resultRetry
	resultFailed
)

// Result is what a handler reports back for one delivery attempt. The
// consumer owns scheduling: handlers never re-enqueue themselves, they just
// say what should happen next.
type Result struct {
	kind  resultKind
	after time.Duration
	err   error
}

// Done acknowledges the job; it will not be delivered again.
func Done() Result {
	return Result{kind: resultDone}
}

// Retry asks for redelivery after the given delay, with the attempt counter
// bumped.
func Retry(after time.Duration, err error) Result {
	return Result{kind: resultRetry, after: after, err: err}
}

// Failed drops the job permanently. The handler has already recorded the
// failure wherever it needs to live.
func Failed(err error) Result {
	return Result{kind: resultFailed, err: err}
}

// Handler processes one job delivery.
type Handler interface {
	Handle(ctx context.Context, job *Job) Result
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) Result

func (f HandlerFunc) Handle(ctx context.Context, job *Job) Result {
	return f(ctx, job)
}
