// Package taskqueue runs named background tasks stored in the tasks table.
package taskqueue

import (
	"context"
	"fmt"

	"newsportal/internal/domain/task"

	"github.com/sirupsen/logrus"
)

// Queue implements task.Enqueuer on top of a task.Repository.
type Queue struct {
	repo   task.Repository
	logger *logrus.Entry
}

var _ task.Enqueuer = (*Queue)(nil)

func NewQueue(repo task.Repository, logger *logrus.Entry) *Queue {
	return &Queue{repo: repo, logger: logger}
}

func (q *Queue) Enqueue(ctx context.Context, name string, args ...any) error {
	raw, err := task.EncodeArgs(args...)
	if err != nil {
		return err
	}
	t := &task.Task{Name: name, Args: raw}
	if err := q.repo.Insert(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", name, err)
	}
	q.logger.WithFields(logrus.Fields{"task_id": t.ID, "task": name}).Debug("Task enqueued")
	return nil
}
