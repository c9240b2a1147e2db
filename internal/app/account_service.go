package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"newsportal/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Custom application-level errors for account service
var ErrInvalidCredentials = fmt.Errorf("invalid username or password")

const minPasswordLength = 8

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]{3,150}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// FieldErrors maps a form field name to its validation message.
type FieldErrors map[string]string

// SignupForm is the self-registration input.
type SignupForm struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password1 string
	Password2 string
}

// AccountService handles registration, sessions and role upgrades.
type AccountService struct {
	userRepo    user.Repository
	sessionRepo user.SessionRepository
	sessionTTL  time.Duration
	logger      *logrus.Entry
	now         func() time.Time
	hashCost    int
}

func NewAccountService(ur user.Repository, sr user.SessionRepository, sessionTTL time.Duration, logger *logrus.Entry) *AccountService {
	return &AccountService{
		userRepo:    ur,
		sessionRepo: sr,
		sessionTTL:  sessionTTL,
		logger:      logger,
		now:         time.Now,
		hashCost:    bcrypt.DefaultCost,
	}
}

// Register validates the form and creates the account in the subscribers group.
// A non-empty FieldErrors means the form must be shown again; err is reserved for storage failures.
func (s *AccountService) Register(ctx context.Context, form SignupForm) (*user.User, FieldErrors, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)

	fieldErrors := FieldErrors{}

	switch {
	case form.Username == "":
		fieldErrors["username"] = "This field is required."
	case !usernamePattern.MatchString(form.Username):
		fieldErrors["username"] = "Enter a valid username: 3-150 letters, digits and @/./+/-/_ only."
	default:
		exists, err := s.userRepo.ExistsByUsername(ctx, form.Username)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			fieldErrors["username"] = "A user with that username already exists."
		}
	}

	switch {
	case form.Email == "":
		fieldErrors["email"] = "This field is required."
	case !emailPattern.MatchString(form.Email):
		fieldErrors["email"] = "Enter a valid email address."
	default:
		exists, err := s.userRepo.ExistsByEmail(ctx, form.Email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			fieldErrors["email"] = "A user with that email already exists."
		}
	}

	if utf8.RuneCountInString(form.Password1) < minPasswordLength {
		fieldErrors["password1"] = fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength)
	}
	if form.Password1 != form.Password2 {
		fieldErrors["password2"] = "The two password fields didn't match."
	}

	if len(fieldErrors) > 0 {
		return nil, fieldErrors, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password1), s.hashCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		Username:     form.Username,
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		PasswordHash: string(hashed),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			// Lost a race with a concurrent signup.
			return nil, FieldErrors{"username": "A user with that username already exists."}, nil
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := s.userRepo.AddToGroup(ctx, u.ID, user.GroupSubscribers); err != nil {
		return nil, nil, fmt.Errorf("failed to add user %d to %s: %w", u.ID, user.GroupSubscribers, err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("User registered")
	return u, nil, nil
}

// Authenticate checks a username/password pair.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	u, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// StartSession opens a new session for the user.
func (s *AccountService) StartSession(ctx context.Context, userID int64) (*user.Session, error) {
	sess := &user.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.sessionTTL).UTC(),
	}
	if err := s.sessionRepo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

func (s *AccountService) EndSession(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, user.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Resolve maps a session id to its user and permission set.
// Unknown or expired sessions resolve to a nil user without error.
func (s *AccountService) Resolve(ctx context.Context, sessionID string) (*user.User, []string, error) {
	if sessionID == "" {
		return nil, nil, nil
	}
	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, user.ErrSessionNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess.Expired(s.now()) {
		return nil, nil, nil
	}

	u, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if u.IsSuperuser {
		return u, []string{user.PermAddPost, user.PermChangePost, user.PermDeletePost}, nil
	}
	perms, err := s.userRepo.Permissions(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load permissions of user %d: %w", u.ID, err)
	}
	return u, perms, nil
}

// ClearExpiredSessions drops every session past its expiry.
func (s *AccountService) ClearExpiredSessions(ctx context.Context) error {
	n, err := s.sessionRepo.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to clear expired sessions: %w", err)
	}
	s.logger.WithField("removed", n).Info("Expired sessions cleared")
	return nil
}

// UpgradeToAuthor adds the user to the authors group unless already a member.
// It reports whether membership changed.
func (s *AccountService) UpgradeToAuthor(ctx context.Context, userID int64) (bool, error) {
	member, err := s.userRepo.InGroup(ctx, userID, user.GroupAuthors)
	if err != nil {
		return false, fmt.Errorf("failed to check authors membership: %w", err)
	}
	if member {
		return false, nil
	}
	if err := s.userRepo.AddToGroup(ctx, userID, user.GroupAuthors); err != nil {
		return false, fmt.Errorf("failed to add user %d to authors: %w", userID, err)
	}
	s.logger.WithField("user_id", userID).Info("User upgraded to author")
	return true, nil
}
