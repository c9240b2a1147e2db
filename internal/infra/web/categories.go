package web

import (
	"net/http"
)

const subscribedMessage = "You are subscribed to the category"

func (s *Server) categoryPosts(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	n, err := parsePage(r)
	if err != nil {
		return err
	}
	c, err := s.svc.Categories.Get(r.Context(), id)
	if err != nil {
		return err
	}
	page, err := s.svc.Categories.Posts(r.Context(), id, n)
	if err != nil {
		return err
	}
	if n > page.NumPage {
		return errNotFound
	}
	subscribed, err := s.svc.Categories.IsSubscriber(r.Context(), id, v.UserID())
	if err != nil {
		return err
	}

	return s.render(w, http.StatusOK, "category.html", v, map[string]any{
		"category":      c,
		"category_news": page.Posts,
		"page":          page,
		"is_subscriber": subscribed,
	})
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	c, err := s.svc.Categories.Subscribe(r.Context(), id, v.UserID())
	if err != nil {
		return err
	}
	return s.render(w, http.StatusOK, "subscribers.html", v, map[string]any{
		"category": c,
		"message":  subscribedMessage,
	})
}
