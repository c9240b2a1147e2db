package task

import (
	"context"
	"errors"
)

var ErrNoTask = errors.New("no pending task")

// Repository persists the task queue.
type Repository interface {
	Insert(ctx context.Context, t *Task) error
	// ClaimNext atomically moves the oldest pending task to running.
	// It returns ErrNoTask when the queue is empty.
	ClaimNext(ctx context.Context) (*Task, error)
	MarkDone(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	ListRecent(ctx context.Context, limit int) ([]*Task, error)
}
