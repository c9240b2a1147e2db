package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newsportal/internal/domain/user"
)

const userColumns = `u.id, u.username, u.email, u.first_name, u.last_name, u.password_hash, u.is_superuser, u.created_at`

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.IsSuperuser, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (username, email, first_name, last_name, password_hash, is_superuser)
              VALUES ($1, $2, $3, $4, $5, $6)
              RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsSuperuser).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if pqCode(err) == pgUniqueViolation {
			return user.ErrDuplicate
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.username = $1`, username)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

// ExistsByEmail compares case-insensitively.
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email)
}

func (r *PostgresUserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking user existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresUserRepository) InGroup(ctx context.Context, userID int64, group string) (bool, error) {
	query := `SELECT EXISTS (
                  SELECT 1 FROM user_groups ug JOIN groups g ON g.id = ug.group_id
                  WHERE ug.user_id = $1 AND g.name = $2
              )`
	var member bool
	if err := r.db.QueryRowContext(ctx, query, userID, group).Scan(&member); err != nil {
		return false, fmt.Errorf("error checking group membership: %w", err)
	}
	return member, nil
}

func (r *PostgresUserRepository) AddToGroup(ctx context.Context, userID int64, group string) error {
	var groupID int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM groups WHERE name = $1`, group).Scan(&groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.ErrGroupNotFound
		}
		return fmt.Errorf("error getting group %q: %w", group, err)
	}

	query := `INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2)
              ON CONFLICT (user_id, group_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, groupID); err != nil {
		if pqCode(err) == pgForeignKeyViolation {
			return user.ErrNotFound
		}
		return fmt.Errorf("error adding user to group: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) Permissions(ctx context.Context, userID int64) ([]string, error) {
	query := `SELECT DISTINCT gp.codename
              FROM user_groups ug JOIN group_permissions gp ON gp.group_id = ug.group_id
              WHERE ug.user_id = $1
              ORDER BY gp.codename`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing permissions: %w", err)
	}
	defer rows.Close()

	perms := make([]string, 0)
	for rows.Next() {
		var codename string
		if err := rows.Scan(&codename); err != nil {
			return nil, fmt.Errorf("error scanning permission: %w", err)
		}
		perms = append(perms, codename)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", err)
	}
	return perms, nil
}

func (r *PostgresUserRepository) CreateSession(ctx context.Context, s *user.Session) error {
	query := `INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.ExpiresAt); err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetSession(ctx context.Context, id string) (*user.Session, error) {
	s := &user.Session{}
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, expires_at FROM sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrSessionNotFound
		}
		return nil, fmt.Errorf("error getting session: %w", err)
	}
	return s, nil
}

func (r *PostgresUserRepository) DeleteSession(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return requireAffected(res, user.ErrSessionNotFound)
}

func (r *PostgresUserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n, nil
}
