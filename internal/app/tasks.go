package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"newsportal/internal/domain/task"

	"github.com/sirupsen/logrus"
)

const (
	TaskHello         = "hello"
	TaskPrinting      = "printing"
	TaskClearSessions = "clear_sessions"
)

// sleep waits for d or until ctx is cancelled. Replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RegisterTasks binds every background task name to its implementation.
func RegisterTasks(reg *task.Registry, notifications *NotificationService, accounts *AccountService, logger *logrus.Entry) {
	reg.Register(TaskHello, func(ctx context.Context, _ []json.RawMessage) error {
		if err := sleep(ctx, 10*time.Second); err != nil {
			return err
		}
		logger.Info("Hi, my dear friend!")
		return nil
	})

	reg.Register(TaskPrinting, func(ctx context.Context, args []json.RawMessage) error {
		var n int
		if err := intArg(args, 0, &n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := sleep(ctx, time.Second); err != nil {
				return err
			}
			logger.WithField("task", TaskPrinting).Info(i + 1)
		}
		return nil
	})

	reg.Register(TaskNotifyPost, func(ctx context.Context, args []json.RawMessage) error {
		var postID int64
		if err := intArg(args, 0, &postID); err != nil {
			return err
		}
		return notifications.NotifyPost(ctx, postID)
	})

	reg.Register(TaskWeeklyDigest, func(ctx context.Context, _ []json.RawMessage) error {
		return notifications.SendWeeklyDigest(ctx)
	})

	reg.Register(TaskClearSessions, func(ctx context.Context, _ []json.RawMessage) error {
		return accounts.ClearExpiredSessions(ctx)
	})
}

func intArg[T int | int64](args []json.RawMessage, i int, out *T) error {
	if i >= len(args) {
		return fmt.Errorf("missing argument %d", i)
	}
	if err := json.Unmarshal(args[i], out); err != nil {
		return fmt.Errorf("argument %d: %w", i, err)
	}
	return nil
}
