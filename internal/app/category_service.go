package app

import (
	"context"
	"fmt"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/post"

	"github.com/sirupsen/logrus"
)

// CategoryService serves category pages and manages subscriptions.
type CategoryService struct {
	categoryRepo category.Repository
	posts        *PostService
	logger       *logrus.Entry
}

func NewCategoryService(cr category.Repository, posts *PostService, logger *logrus.Entry) *CategoryService {
	return &CategoryService{categoryRepo: cr, posts: posts, logger: logger}
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*category.Category, error) {
	c, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}
	return c, nil
}

func (s *CategoryService) ListAll(ctx context.Context) ([]*category.Category, error) {
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Posts lists one page of the category's posts, newest first.
func (s *CategoryService) Posts(ctx context.Context, categoryID int64, page int) (*PostPage, error) {
	return s.posts.List(ctx, post.Filter{CategoryID: categoryID}, page)
}

// Subscribe adds the user to the category's subscribers. Repeated calls are no-ops.
func (s *CategoryService) Subscribe(ctx context.Context, categoryID, userID int64) (*category.Category, error) {
	c, err := s.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.categoryRepo.AddSubscriber(ctx, categoryID, userID); err != nil {
		return nil, fmt.Errorf("failed to subscribe user %d to category %d: %w", userID, categoryID, err)
	}
	s.logger.WithFields(logrus.Fields{"category_id": categoryID, "user_id": userID}).Info("User subscribed to category")
	return c, nil
}

// IsSubscriber reports whether the user follows the category. Anonymous visitors (userID 0) never do.
func (s *CategoryService) IsSubscriber(ctx context.Context, categoryID, userID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	ok, err := s.categoryRepo.IsSubscriber(ctx, categoryID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return ok, nil
}
