package user

import "time"

// Role groups a user can belong to.
const (
	GroupSubscribers = "subscribers"
	GroupAuthors     = "authors"
)

// Permission codenames checked by the post views.
const (
	PermAddPost    = "news.add_post"
	PermChangePost = "news.change_post"
	PermDeletePost = "news.delete_post"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsSuperuser  bool
	CreatedAt    time.Time
}

// Session binds a browser cookie to a user until ExpiresAt.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
