package web

import (
	"errors"
	"net/http"
	"strings"

	"newsportal/internal/app"
)

const sessionCookie = "sessionid"

func (s *Server) signupForm(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	return s.render(w, http.StatusOK, "signup.html", v, map[string]any{
		"form":   app.SignupForm{},
		"errors": app.FieldErrors{},
	})
}

// signup registers the account and sends the visitor to the list. It does not log them in.
func (s *Server) signup(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	form := app.SignupForm{
		Username:  r.PostForm.Get("username"),
		Email:     r.PostForm.Get("email"),
		FirstName: r.PostForm.Get("first_name"),
		LastName:  r.PostForm.Get("last_name"),
		Password1: r.PostForm.Get("password1"),
		Password2: r.PostForm.Get("password2"),
	}

	_, fieldErrors, err := s.svc.Accounts.Register(r.Context(), form)
	if err != nil {
		return err
	}
	if len(fieldErrors) > 0 {
		form.Password1, form.Password2 = "", ""
		return s.render(w, http.StatusOK, "signup.html", v, map[string]any{
			"form":   form,
			"errors": fieldErrors,
		})
	}
	http.Redirect(w, r, listURL, http.StatusFound)
	return nil
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	if _, err := s.svc.Accounts.UpgradeToAuthor(r.Context(), v.UserID()); err != nil {
		return err
	}
	http.Redirect(w, r, listURL, http.StatusFound)
	return nil
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	return s.render(w, http.StatusOK, "login.html", v, map[string]any{
		"next": safeNext(r.URL.Query().Get("next")),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	username := r.PostForm.Get("username")
	next := safeNext(r.PostForm.Get("next"))

	u, err := s.svc.Accounts.Authenticate(r.Context(), username, r.PostForm.Get("password"))
	if errors.Is(err, app.ErrInvalidCredentials) {
		return s.render(w, http.StatusOK, "login.html", v, map[string]any{
			"next":     next,
			"username": username,
			"error":    "Please enter a correct username and password.",
		})
	}
	if err != nil {
		return err
	}

	sess, err := s.svc.Accounts.StartSession(r.Context(), u.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.settings.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	if next == "" {
		next = listURL
	}
	http.Redirect(w, r, next, http.StatusFound)
	return nil
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := s.svc.Accounts.EndSession(r.Context(), c.Value); err != nil {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.settings.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, listURL, http.StatusFound)
	return nil
}

// safeNext keeps only local absolute paths so login cannot redirect off-site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
