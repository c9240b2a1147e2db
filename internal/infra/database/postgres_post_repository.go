package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/post"

	"github.com/lib/pq"
)

const postColumns = `p.id, p.author_id, u.username, p.kind, p.title, p.text, p.created_at`

type PostgresPostRepository struct {
	db *sql.DB
}

func NewPostgresPostRepository(db *sql.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

func scanPost(row interface{ Scan(...any) error }) (*post.Post, error) {
	p := &post.Post{}
	var kind string
	if err := row.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &kind, &p.Title, &p.Text, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Kind = post.Kind(kind)
	return p, nil
}

func (r *PostgresPostRepository) Create(ctx context.Context, p *post.Post) error {
	query := `WITH inserted AS (
                  INSERT INTO posts (author_id, kind, title, text)
                  VALUES ($1, $2, $3, $4)
                  RETURNING id, author_id, created_at
              )
              SELECT i.id, i.created_at, u.username
              FROM inserted i JOIN users u ON u.id = i.author_id`

	err := r.db.QueryRowContext(ctx, query, p.AuthorID, string(p.Kind), p.Title, p.Text).Scan(&p.ID, &p.CreatedAt, &p.AuthorName)
	if err != nil {
		return fmt.Errorf("error creating post: %w", err)
	}
	return nil
}

func (r *PostgresPostRepository) GetByID(ctx context.Context, id int64) (*post.Post, error) {
	query := `SELECT ` + postColumns + `
              FROM posts p JOIN users u ON u.id = p.author_id
              WHERE p.id = $1`
	p, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, post.ErrNotFound
		}
		return nil, fmt.Errorf("error getting post by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPostRepository) Update(ctx context.Context, p *post.Post) error {
	query := `UPDATE posts SET kind = $1, title = $2, text = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, string(p.Kind), p.Title, p.Text, p.ID)
	if err != nil {
		return fmt.Errorf("error updating post: %w", err)
	}
	return requireAffected(res, post.ErrNotFound)
}

func (r *PostgresPostRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	}
	return requireAffected(res, post.ErrNotFound)
}

// postFilterClause renders f as a WHERE clause with numbered placeholders.
func postFilterClause(f post.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Title != "" {
		add(`p.title ILIKE '%%' || $%d || '%%'`, escapeLike(f.Title))
	}
	if f.Author != "" {
		add(`u.username ILIKE '%%' || $%d || '%%'`, escapeLike(f.Author))
	}
	if !f.After.IsZero() {
		add(`p.created_at > $%d`, f.After)
	}
	if f.CategoryID != 0 {
		add(`EXISTS (SELECT 1 FROM post_categories pc WHERE pc.post_id = p.id AND pc.category_id = $%d)`, f.CategoryID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresPostRepository) List(ctx context.Context, f post.Filter, limit, offset int) ([]*post.Post, int, error) {
	where, args := postFilterClause(f)
	from := ` FROM posts p JOIN users u ON u.id = p.author_id`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting posts: %w", err)
	}

	query := `SELECT ` + postColumns + from + where +
		fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*post.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning post: %w", err)
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, total, nil
}

func (r *PostgresPostRepository) CategoryIDs(ctx context.Context, postID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category_id FROM post_categories WHERE post_id = $1 ORDER BY id`, postID)
	if err != nil {
		return nil, fmt.Errorf("error listing post categories: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning post category: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post categories: %w", err)
	}
	return ids, nil
}

// AddCategories links the categories in the given order. Existing links are kept as they are.
func (r *PostgresPostRepository) AddCategories(ctx context.Context, postID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	query := `INSERT INTO post_categories (post_id, category_id)
              SELECT $1, c.id FROM unnest($2::bigint[]) WITH ORDINALITY AS c (id, ord)
              ORDER BY c.ord
              ON CONFLICT (post_id, category_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, postID, pq.Array(categoryIDs)); err != nil {
		if pqCode(err) == pgForeignKeyViolation {
			return category.ErrNotFound
		}
		return fmt.Errorf("error adding post categories: %w", err)
	}
	return nil
}

func (r *PostgresPostRepository) RemoveCategories(ctx context.Context, postID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	query := `DELETE FROM post_categories WHERE post_id = $1 AND category_id = ANY($2)`
	if _, err := r.db.ExecContext(ctx, query, postID, pq.Array(categoryIDs)); err != nil {
		return fmt.Errorf("error removing post categories: %w", err)
	}
	return nil
}

// requireAffected maps a zero-row write to notFound.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
