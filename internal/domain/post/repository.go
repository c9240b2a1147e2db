package post

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("post not found")

// Filter narrows post listings. Zero values mean "no constraint".
type Filter struct {
	Title      string    // case-insensitive substring of the title
	Author     string    // case-insensitive substring of the author's username
	After      time.Time // created strictly after this instant
	CategoryID int64
}

// Repository defines the operations for persisting and retrieving posts and their category links.
type Repository interface {
	Create(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id int64) (*Post, error)
	Update(ctx context.Context, p *Post) error // title, text and kind only
	Delete(ctx context.Context, id int64) error

	// List returns one page ordered by creation time, newest first, plus the total match count.
	List(ctx context.Context, f Filter, limit, offset int) ([]*Post, int, error)

	CategoryIDs(ctx context.Context, postID int64) ([]int64, error)
	AddCategories(ctx context.Context, postID int64, categoryIDs []int64) error
	RemoveCategories(ctx context.Context, postID int64, categoryIDs []int64) error
}
