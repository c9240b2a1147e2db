package category

import (
	"context"
	"errors"

	"newsportal/internal/domain/user"
)

var ErrNotFound = errors.New("category not found")
var ErrDuplicateName = errors.New("category with this name already exists")

// Repository defines the operations on categories and their subscriber sets.
type Repository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	ListAll(ctx context.Context) ([]*Category, error)
	ListByPost(ctx context.Context, postID int64) ([]*Category, error)

	Subscribers(ctx context.Context, categoryID int64) ([]*user.User, error)
	// AddSubscriber is idempotent: adding an existing subscriber is not an error.
	AddSubscriber(ctx context.Context, categoryID, userID int64) error
	IsSubscriber(ctx context.Context, categoryID, userID int64) (bool, error)
}
