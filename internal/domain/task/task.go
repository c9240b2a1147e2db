package task

import (
	"context"
	"encoding/json"
	"time"
)

// Status tracks a task through the worker.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Task is one enqueued unit of work. Args is a JSON array of positional arguments.
type Task struct {
	ID         int64
	Name       string
	Args       json.RawMessage
	Status     Status
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Enqueuer submits work for asynchronous execution and returns immediately.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, args ...any) error
}
