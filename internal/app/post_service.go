package app

import (
	"context"
	"fmt"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/post"

	"github.com/sirupsen/logrus"
)

// PageSize is the number of posts shown per listing page.
const PageSize = 10

// PostPage is one page of a post listing.
type PostPage struct {
	Posts   []*post.Post
	Number  int // 1-based
	Total   int
	NumPage int
}

func (p *PostPage) HasPrevious() bool { return p.Number > 1 }
func (p *PostPage) HasNext() bool     { return p.Number < p.NumPage }
func (p *PostPage) Previous() int     { return p.Number - 1 }
func (p *PostPage) Next() int         { return p.Number + 1 }

// PostService handles post CRUD and owns the category assignment event.
type PostService struct {
	postRepo     post.Repository
	categoryRepo category.Repository
	hook         CategoryHook
	logger       *logrus.Entry
}

func NewPostService(pr post.Repository, cr category.Repository, hook CategoryHook, logger *logrus.Entry) *PostService {
	return &PostService{
		postRepo:     pr,
		categoryRepo: cr,
		hook:         hook,
		logger:       logger,
	}
}

// List returns the requested page, newest first. Pages below 1 are treated as 1.
func (s *PostService) List(ctx context.Context, f post.Filter, page int) (*PostPage, error) {
	if page < 1 {
		page = 1
	}
	posts, total, err := s.postRepo.List(ctx, f, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	numPages := (total + PageSize - 1) / PageSize
	if numPages == 0 {
		numPages = 1
	}
	return &PostPage{Posts: posts, Number: page, Total: total, NumPage: numPages}, nil
}

// Get returns a post with its categories.
func (s *PostService) Get(ctx context.Context, id int64) (*post.Post, []*category.Category, error) {
	p, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	categories, err := s.categoryRepo.ListByPost(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list categories of post %d: %w", id, err)
	}
	return p, categories, nil
}

// Create stores a new post and then attaches its categories.
// Attaching a non-empty set fires the CategoryHook exactly once.
func (s *PostService) Create(ctx context.Context, p *post.Post, categoryIDs []int64) error {
	if err := s.postRepo.Create(ctx, p); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"post_id": p.ID, "kind": p.Kind}).Info("Post created")
	return s.SetCategories(ctx, p.ID, categoryIDs)
}

// Update saves title, text and kind, then replaces the category set.
func (s *PostService) Update(ctx context.Context, p *post.Post, categoryIDs []int64) error {
	if err := s.postRepo.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to update post %d: %w", p.ID, err)
	}
	return s.SetCategories(ctx, p.ID, categoryIDs)
}

func (s *PostService) Delete(ctx context.Context, id int64) error {
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	s.logger.WithField("post_id", id).Info("Post deleted")
	return nil
}

// SetCategories makes the post's category set equal to categoryIDs.
// Removals happen first and never notify; if any category was added the hook runs
// once, after the additions are stored, so it observes the final set.
func (s *PostService) SetCategories(ctx context.Context, postID int64, categoryIDs []int64) error {
	current, err := s.postRepo.CategoryIDs(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to read categories of post %d: %w", postID, err)
	}

	toAdd, toRemove := diffIDs(current, categoryIDs)

	if len(toRemove) > 0 {
		if err := s.postRepo.RemoveCategories(ctx, postID, toRemove); err != nil {
			return fmt.Errorf("failed to remove categories from post %d: %w", postID, err)
		}
	}
	if len(toAdd) == 0 {
		return nil
	}

	if err := s.postRepo.AddCategories(ctx, postID, toAdd); err != nil {
		return fmt.Errorf("failed to add categories to post %d: %w", postID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"post_id":      postID,
		"category_ids": toAdd,
	}).Debug("Categories added to post")

	return s.hook.CategoriesAdded(ctx, postID)
}

// diffIDs returns the ids in want but not in have, and those in have but not in want.
// Duplicates in want are ignored; order of first appearance is kept.
func diffIDs(have, want []int64) (toAdd, toRemove []int64) {
	haveSet := make(map[int64]struct{}, len(have))
	for _, id := range have {
		haveSet[id] = struct{}{}
	}
	wantSet := make(map[int64]struct{}, len(want))
	for _, id := range want {
		if _, dup := wantSet[id]; dup {
			continue
		}
		wantSet[id] = struct{}{}
		if _, ok := haveSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range have {
		if _, ok := wantSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	return toAdd, toRemove
}
