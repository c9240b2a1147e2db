package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/user"
)

type PostgresCategoryRepository struct {
	db *sql.DB
}

func NewPostgresCategoryRepository(db *sql.DB) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{db: db}
}

func (r *PostgresCategoryRepository) Create(ctx context.Context, c *category.Category) error {
	err := r.db.QueryRowContext(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID)
	if err != nil {
		if pqCode(err) == pgUniqueViolation {
			return category.ErrDuplicateName
		}
		return fmt.Errorf("error creating category: %w", err)
	}
	return nil
}

func (r *PostgresCategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	c := &category.Category{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("error getting category by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresCategoryRepository) ListAll(ctx context.Context) ([]*category.Category, error) {
	return r.list(ctx, `SELECT id, name FROM categories ORDER BY name`)
}

// ListByPost returns the post's categories in the order they were attached.
func (r *PostgresCategoryRepository) ListByPost(ctx context.Context, postID int64) ([]*category.Category, error) {
	return r.list(ctx, `SELECT c.id, c.name
                        FROM post_categories pc JOIN categories c ON c.id = pc.category_id
                        WHERE pc.post_id = $1
                        ORDER BY pc.id`, postID)
}

func (r *PostgresCategoryRepository) list(ctx context.Context, query string, args ...any) ([]*category.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*category.Category, 0)
	for rows.Next() {
		c := &category.Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// Subscribers returns the category's subscribers in subscription order.
func (r *PostgresCategoryRepository) Subscribers(ctx context.Context, categoryID int64) ([]*user.User, error) {
	query := `SELECT ` + userColumns + `
              FROM category_subscribers cs JOIN users u ON u.id = cs.user_id
              WHERE cs.category_id = $1
              ORDER BY cs.id`
	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("error listing subscribers: %w", err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning subscriber: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscribers: %w", err)
	}
	return users, nil
}

func (r *PostgresCategoryRepository) AddSubscriber(ctx context.Context, categoryID, userID int64) error {
	query := `INSERT INTO category_subscribers (category_id, user_id) VALUES ($1, $2)
              ON CONFLICT (category_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, categoryID, userID); err != nil {
		if pqCode(err) == pgForeignKeyViolation {
			return category.ErrNotFound
		}
		return fmt.Errorf("error adding subscriber: %w", err)
	}
	return nil
}

func (r *PostgresCategoryRepository) IsSubscriber(ctx context.Context, categoryID, userID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM category_subscribers WHERE category_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, categoryID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking subscription: %w", err)
	}
	return exists, nil
}
