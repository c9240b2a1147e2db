// Package web serves the site's HTML pages over chi.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"newsportal/internal/app"
	"newsportal/internal/domain/task"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second // covers a synchronous notification send
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Services are the application services the handlers call into.
type Services struct {
	Posts      *app.PostService
	Categories *app.CategoryService
	Accounts   *app.AccountService
	Tasks      task.Enqueuer
}

// Settings tune cookie handling.
type Settings struct {
	SecureCookies bool
}

type Server struct {
	svc      Services
	settings Settings
	pages    *pageSet
	logger   *logrus.Entry
	now      func() time.Time
}

func NewServer(svc Services, settings Settings, logger *logrus.Entry) *Server {
	return &Server{
		svc:      svc,
		settings: settings,
		pages:    mustLoadPages(),
		logger:   logger,
		now:      time.Now,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Page not found")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, listURL, http.StatusFound)
	})

	r.Route("/news", func(r chi.Router) {
		r.Get("/", s.page(s.postList))
		r.Get("/search", s.page(s.postSearch))
		r.Get("/index", s.page(s.index))
		r.Get("/{id}", s.page(s.postDetail))
		s.mountEditing(r, newsVariant)

		r.Get("/category/{id}", s.page(s.categoryPosts))
		r.Get("/category/{id}/subscribe", s.page(LoginRequired(s.subscribe)))
	})
	r.Route("/articles", func(r chi.Router) {
		s.mountEditing(r, articleVariant)
	})

	r.Route("/sign", func(r chi.Router) {
		r.Get("/signup", s.page(s.signupForm))
		r.Post("/signup", s.page(s.signup))
		r.Get("/upgrade", s.page(LoginRequired(s.upgrade)))
	})
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/login", s.page(s.loginForm))
		r.Post("/login", s.page(s.login))
		r.Post("/logout", s.page(s.logout))
	})

	return r
}

func (s *Server) mountEditing(r chi.Router, v variant) {
	create := PermissionRequired(permAdd, s.postCreate(v))
	edit := PermissionRequired(permChange, s.postEdit(v))
	del := PermissionRequired(permDelete, s.postDelete(v))

	r.Get("/create", s.page(create))
	r.Post("/create", s.page(create))
	r.Get("/{id}/edit", s.page(edit))
	r.Post("/{id}/edit", s.page(edit))
	r.Get("/{id}/delete", s.page(del))
	r.Post("/{id}/delete", s.page(del))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
