package web

import (
	"errors"
	"net/http"
	"net/url"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/post"
	"newsportal/internal/domain/user"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	permAdd    = user.PermAddPost
	permChange = user.PermChangePost
	permDelete = user.PermDeletePost

	loginURL = "/accounts/login"
)

var (
	errForbidden = errors.New("permission denied")
	errNotFound  = errors.New("page not found")
)

// Visitor is the per-request identity. User is nil for anonymous visitors.
type Visitor struct {
	User        *user.User
	permissions map[string]struct{}
}

func newVisitor(u *user.User, perms []string) *Visitor {
	v := &Visitor{User: u, permissions: make(map[string]struct{}, len(perms))}
	for _, p := range perms {
		v.permissions[p] = struct{}{}
	}
	return v
}

func (v *Visitor) IsAuthenticated() bool { return v != nil && v.User != nil }

// Has reports whether the visitor holds the permission codename.
func (v *Visitor) Has(perm string) bool {
	if !v.IsAuthenticated() {
		return false
	}
	_, ok := v.permissions[perm]
	return ok
}

// UserID is 0 for anonymous visitors.
func (v *Visitor) UserID() int64 {
	if !v.IsAuthenticated() {
		return 0
	}
	return v.User.ID
}

// pageHandler serves one page for an already resolved visitor.
// Returned errors are turned into error pages by Server.page.
type pageHandler func(w http.ResponseWriter, r *http.Request, v *Visitor) error

// LoginRequired sends anonymous visitors to the login page with a next parameter.
func LoginRequired(h pageHandler) pageHandler {
	return func(w http.ResponseWriter, r *http.Request, v *Visitor) error {
		if !v.IsAuthenticated() {
			redirectToLogin(w, r)
			return nil
		}
		return h(w, r, v)
	}
}

// PermissionRequired implies LoginRequired and answers 403 when perm is missing.
func PermissionRequired(perm string, h pageHandler) pageHandler {
	return LoginRequired(func(w http.ResponseWriter, r *http.Request, v *Visitor) error {
		if !v.Has(perm) {
			return errForbidden
		}
		return h(w, r, v)
	})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	q := url.Values{"next": {r.URL.RequestURI()}}
	http.Redirect(w, r, loginURL+"?"+q.Encode(), http.StatusFound)
}

// page resolves the visitor from the session cookie and maps handler errors to status pages.
func (s *Server) page(h pageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.visitor(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := h(w, r, v); err != nil {
			s.fail(w, r, err)
		}
	}
}

func (s *Server) visitor(r *http.Request) (*Visitor, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return newVisitor(nil, nil), nil
	}
	u, perms, err := s.svc.Accounts.Resolve(r.Context(), c.Value)
	if err != nil {
		return nil, err
	}
	return newVisitor(u, perms), nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNotFound), errors.Is(err, post.ErrNotFound), errors.Is(err, category.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound, "Page not found")
	case errors.Is(err, errForbidden):
		s.renderError(w, r, http.StatusForbidden, "You do not have permission to view this page")
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error("Request failed")
		s.renderError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
