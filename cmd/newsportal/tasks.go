package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"newsportal/internal/domain/task"
	idb "newsportal/internal/infra/database"
	"newsportal/internal/infra/logger"
	"newsportal/internal/infra/taskqueue"

	"github.com/spf13/cobra"
)

const maxErrorWidth = 60

func newTasksCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Show recent background tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			_, db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			tasks, err := idb.NewPostgresTaskRepository(db).ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of tasks to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "enqueue NAME [JSON_ARG...]",
		Short: "Queue a task with positional JSON arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskArgs := parseJSONArgs(args[1:])
			_, db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			q := taskqueue.NewQueue(idb.NewPostgresTaskRepository(db), logger.Component("taskqueue"))
			if err := q.Enqueue(cmd.Context(), args[0], taskArgs...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", args[0])
			return nil
		},
	})

	return cmd
}

// parseJSONArgs decodes each CLI argument as JSON. Bare words that are not valid JSON are taken as strings.
func parseJSONArgs(raw []string) []any {
	out := make([]any, 0, len(raw))
	for _, arg := range raw {
		var v any
		if err := json.Unmarshal([]byte(arg), &v); err != nil {
			v = arg
		}
		out = append(out, v)
	}
	return out
}

func printTasks(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks")
		return
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Name,
			string(t.Args),
			string(t.Status),
			strconv.Itoa(t.Attempts),
			t.CreatedAt.Local().Format(time.DateTime),
			formatDuration(t.StartedAt, t.FinishedAt),
			truncate(t.LastError, maxErrorWidth),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"ID", "Task", "Args", "Status", "Attempts", "Created", "Duration", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	))
}

func formatDuration(started, finished *time.Time) string {
	if started == nil || finished == nil {
		return "-"
	}
	return finished.Sub(*started).Round(time.Millisecond).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
