package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"newsportal/internal/domain/task"
)

const taskColumns = `id, name, args, status, attempts, last_error, created_at, started_at, finished_at`

type PostgresTaskRepository struct {
	db *sql.DB
}

func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func scanTask(row interface{ Scan(...any) error }) (*task.Task, error) {
	t := &task.Task{}
	var (
		status   string
		args     []byte
		started  sql.NullTime
		finished sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Name, &args, &status, &t.Attempts, &t.LastError, &t.CreatedAt, &started, &finished); err != nil {
		return nil, err
	}
	t.Args = args
	t.Status = task.Status(status)
	if started.Valid {
		t.StartedAt = &started.Time
	}
	if finished.Valid {
		t.FinishedAt = &finished.Time
	}
	return t, nil
}

func (r *PostgresTaskRepository) Insert(ctx context.Context, t *task.Task) error {
	args := []byte(t.Args)
	if len(args) == 0 {
		args = []byte("[]")
	}
	query := `INSERT INTO tasks (name, args) VALUES ($1, $2)
              RETURNING id, status, created_at`
	var status string
	if err := r.db.QueryRowContext(ctx, query, t.Name, args).Scan(&t.ID, &status, &t.CreatedAt); err != nil {
		return fmt.Errorf("error inserting task: %w", err)
	}
	t.Status = task.Status(status)
	return nil
}

// ClaimNext locks the oldest pending row, skipping rows held by other workers.
func (r *PostgresTaskRepository) ClaimNext(ctx context.Context) (*task.Task, error) {
	query := `UPDATE tasks SET status = 'running', attempts = attempts + 1, started_at = NOW()
              WHERE id = (
                  SELECT id FROM tasks WHERE status = 'pending'
                  ORDER BY created_at, id
                  FOR UPDATE SKIP LOCKED
                  LIMIT 1
              )
              RETURNING ` + taskColumns
	t, err := scanTask(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, task.ErrNoTask
		}
		return nil, fmt.Errorf("error claiming task: %w", err)
	}
	return t, nil
}

func (r *PostgresTaskRepository) MarkDone(ctx context.Context, id int64) error {
	return r.finish(ctx, id, task.StatusDone, "")
}

func (r *PostgresTaskRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.finish(ctx, id, task.StatusFailed, reason)
}

func (r *PostgresTaskRepository) finish(ctx context.Context, id int64, status task.Status, reason string) error {
	query := `UPDATE tasks SET status = $1, last_error = $2, finished_at = NOW() WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, string(status), reason, id); err != nil {
		return fmt.Errorf("error marking task %d as %s: %w", id, status, err)
	}
	return nil
}

func (r *PostgresTaskRepository) ListRecent(ctx context.Context, limit int) ([]*task.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*task.Task, 0, limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}
