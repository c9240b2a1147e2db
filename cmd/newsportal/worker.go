package main

import (
	"os/signal"
	"syscall"

	"newsportal/internal/app"
	"newsportal/internal/domain/task"
	"newsportal/internal/infra/logger"
	"newsportal/internal/infra/scheduler"
	"newsportal/internal/infra/taskqueue"

	"github.com/spf13/cobra"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var noCron bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background tasks and the periodic job scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, db, err := ctx.openDB(runCtx)
			if err != nil {
				return err
			}
			defer db.Close()

			a, err := buildApplication(cfg, db)
			if err != nil {
				return err
			}

			registry := task.NewRegistry()
			app.RegisterTasks(registry, a.notifications, a.accounts, logger.Component("tasks"))
			logger.Log.WithField("tasks", registry.Names()).Info("Tasks registered.")

			if !noCron {
				sched := scheduler.NewTaskScheduler(a.queue, logger.Component("scheduler"),
					scheduler.Job{Spec: cfg.CronSpecWeeklyDigest, Task: app.TaskWeeklyDigest},
					scheduler.Job{Spec: cfg.CronSpecClearSessions, Task: app.TaskClearSessions},
				)
				if err := sched.Start(); err != nil {
					return err
				}
				defer sched.Stop()
			}

			w := taskqueue.NewWorker(a.taskRepo, registry, cfg.WorkerPollInterval, logger.Component("worker"))
			return w.Run(runCtx)
		},
	}
	cmd.Flags().BoolVar(&noCron, "no-cron", false, "Do not schedule periodic jobs from this worker")
	return cmd
}
