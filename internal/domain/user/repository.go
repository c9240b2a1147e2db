package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrDuplicate       = errors.New("user with this username or email already exists")
	ErrGroupNotFound   = errors.New("group not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Repository defines the operations for persisting users and their group memberships.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	InGroup(ctx context.Context, userID int64, group string) (bool, error)
	// AddToGroup is idempotent; it returns ErrGroupNotFound for an unknown group name.
	AddToGroup(ctx context.Context, userID int64, group string) error
	// Permissions returns the union of permission codenames granted through the user's groups.
	Permissions(ctx context.Context, userID int64) ([]string, error)
}

// SessionRepository stores login sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes sessions expired at now and reports how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
