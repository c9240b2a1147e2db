package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsportal/internal/domain/task"

	"github.com/sirupsen/logrus"
)

// finishTimeout bounds the final status write, which must outlive a cancelled run context.
const finishTimeout = 5 * time.Second

// Worker claims pending tasks one at a time and runs them through a Registry.
type Worker struct {
	repo         task.Repository
	registry     *task.Registry
	pollInterval time.Duration
	logger       *logrus.Entry
}

func NewWorker(repo task.Repository, registry *task.Registry, pollInterval time.Duration, logger *logrus.Entry) *Worker {
	return &Worker{
		repo:         repo,
		registry:     registry,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run processes tasks until ctx is cancelled. An empty queue is polled every pollInterval.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.WithField("poll_interval", w.pollInterval).Info("Worker started")
	for {
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			w.logger.WithError(err).Error("Failed to process task")
		}
		if processed && err == nil {
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopped")
			return nil
		case <-time.After(w.pollInterval):
		}
	}
}

// ProcessNext claims and runs a single task. It reports false when the queue was empty.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, nil
	}
	t, err := w.repo.ClaimNext(ctx)
	if err != nil {
		if errors.Is(err, task.ErrNoTask) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim task: %w", err)
	}

	logCtx := w.logger.WithFields(logrus.Fields{"task_id": t.ID, "task": t.Name, "attempt": t.Attempts})
	started := time.Now()

	runErr := w.execute(ctx, t)

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if runErr != nil {
		logCtx.WithError(runErr).Error("Task failed")
		if err := w.repo.MarkFailed(finishCtx, t.ID, runErr.Error()); err != nil {
			return true, fmt.Errorf("failed to mark task %d failed: %w", t.ID, err)
		}
		return true, nil
	}

	logCtx.WithField("duration", time.Since(started)).Info("Task done")
	if err := w.repo.MarkDone(finishCtx, t.ID); err != nil {
		return true, fmt.Errorf("failed to mark task %d done: %w", t.ID, err)
	}
	return true, nil
}

func (w *Worker) execute(ctx context.Context, t *task.Task) (err error) {
	h, ok := w.registry.Lookup(t.Name)
	if !ok {
		return fmt.Errorf("unknown task %q", t.Name)
	}
	args, err := task.DecodeArgs(t.Args)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
	}()
	return h(ctx, args)
}
