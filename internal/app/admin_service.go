package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/user"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Custom application-level errors for admin service
var ErrCategoryAlreadyExists = fmt.Errorf("category with this name already exists")
var ErrUserAlreadyExists = fmt.Errorf("user with this username or email already exists")

// CategoryStats is one row of the admin category listing.
type CategoryStats struct {
	Category    *category.Category
	Subscribers int
}

// AdminService backs the operator commands that the public site does not expose.
type AdminService struct {
	categoryRepo category.Repository
	userRepo     user.Repository
	logger       *logrus.Entry
	hashCost     int
}

func NewAdminService(cr category.Repository, ur user.Repository, logger *logrus.Entry) *AdminService {
	return &AdminService{
		categoryRepo: cr,
		userRepo:     ur,
		logger:       logger,
		hashCost:     bcrypt.DefaultCost,
	}
}

// AddCategory creates a category. Names are trimmed and must be unique.
func (s *AdminService) AddCategory(ctx context.Context, name string) (*category.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is empty")
	}

	c := &category.Category{Name: name}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		if errors.Is(err, category.ErrDuplicateName) {
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to create category in repository: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"category_id": c.ID, "name": c.Name}).Info("Category created")
	return c, nil
}

// ListCategories returns every category with its subscriber count, ordered by name.
func (s *AdminService) ListCategories(ctx context.Context) ([]CategoryStats, error) {
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	stats := make([]CategoryStats, 0, len(categories))
	for _, c := range categories {
		subscribers, err := s.categoryRepo.Subscribers(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscribers of category %d: %w", c.ID, err)
		}
		stats = append(stats, CategoryStats{Category: c, Subscribers: len(subscribers)})
	}
	return stats, nil
}

// CreateSuperuser creates an account holding every permission. Only the username
// and email formats are checked; the signup password rules do not apply.
func (s *AdminService) CreateSuperuser(ctx context.Context, username, email, password string) (*user.User, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("invalid username %q", username)
	}
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if password == "" {
		return nil, fmt.Errorf("password is empty")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{Username: username, Email: email, PasswordHash: string(hashed), IsSuperuser: true}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create superuser in repository: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("Superuser created")
	return u, nil
}
