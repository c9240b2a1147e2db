package scheduler

import (
	"context"
	"fmt"
	"time"

	"newsportal/internal/domain/task"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const enqueueTimeout = 10 * time.Second

// Job binds a cron spec to a task name enqueued on every tick.
type Job struct {
	Spec string
	Task string
	Args []any
}

// TaskScheduler enqueues periodic tasks; the worker runs them.
type TaskScheduler struct {
	cronEngine *cron.Cron
	enqueuer   task.Enqueuer
	jobs       []Job
	logger     *logrus.Entry
}

func NewTaskScheduler(enqueuer task.Enqueuer, logger *logrus.Entry, jobs ...Job) *TaskScheduler {
	return &TaskScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		enqueuer:   enqueuer,
		jobs:       jobs,
		logger:     logger,
	}
}

// Start registers every job and starts the cron engine. An invalid spec is returned before anything runs.
func (s *TaskScheduler) Start() error {
	s.logger.Info("Starting task scheduler...")

	for _, job := range s.jobs {
		if _, err := s.cronEngine.AddFunc(job.Spec, func() { s.fire(job) }); err != nil {
			return fmt.Errorf("could not add cron job %s (%q): %w", job.Task, job.Spec, err)
		}
		s.logger.WithFields(logrus.Fields{"task": job.Task, "spec": job.Spec}).Info("Cron job registered")
	}

	s.cronEngine.Start()
	s.logger.Info("Task scheduler started with jobs.")
	return nil
}

func (s *TaskScheduler) fire(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	logCtx := s.logger.WithField("task", job.Task)
	if err := s.enqueuer.Enqueue(ctx, job.Task, job.Args...); err != nil {
		logCtx.WithError(err).Error("Failed to enqueue scheduled task")
		return
	}
	logCtx.Info("Scheduled task enqueued")
}

func (s *TaskScheduler) Stop() {
	s.logger.Info("Stopping task scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Task scheduler gracefully stopped.")
}
