// Package taskqueue abstracts the activity-task transport: long-poll
// for work, then respond completed/canceled/failed — the three SWF
// ActivityTask dispositions.
package taskqueue

import "context"

// Task is one unit of work handed out by a long-poll.
type Task struct {
	Token string
	Input string
}

// TaskQueue is the worker's only synchronization point with the
// outside world. Poll returns (nil, nil) when the long-poll times out
// with no work, not an error.
type TaskQueue interface {
	Poll(ctx context.Context) (*Task, error)
	RespondCompleted(ctx context.Context, token, result string) error
	RespondCanceled(ctx context.Context, token, details string) error
	RespondFailed(ctx context.Context, token, details string) error
}
