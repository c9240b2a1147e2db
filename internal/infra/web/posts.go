package web

import (
	"errors"
	"net/http"

	"newsportal/internal/app"
	"newsportal/internal/domain/post"
)

const listURL = "/news/"

// variant separates the /news and /articles aliases over the same posts.
type variant struct {
	kind        post.Kind
	createTitle string
	editTitle   string
	deleteTitle string
}

var (
	newsVariant = variant{
		kind:        post.KindNews,
		createTitle: "Create news",
		editTitle:   "Edit news",
		deleteTitle: "Delete news",
	}
	articleVariant = variant{
		kind:        post.KindArticle,
		createTitle: "Create article",
		editTitle:   "Edit article",
		deleteTitle: "Delete article",
	}
)

func (s *Server) postList(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	return s.filteredList(w, r, v, "news.html", "posts", "search_filter")
}

func (s *Server) postSearch(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	return s.filteredList(w, r, v, "post_search.html", "posts_search", "filterset")
}

func (s *Server) filteredList(w http.ResponseWriter, r *http.Request, v *Visitor, tmpl, listName, filterName string) error {
	n, err := parsePage(r)
	if err != nil {
		return err
	}
	ff, f := parseFilter(r.URL.Query())

	page, err := s.svc.Posts.List(r.Context(), f, n)
	if err != nil {
		return err
	}
	if n > page.NumPage {
		return errNotFound
	}
	categories, err := s.svc.Categories.ListAll(r.Context())
	if err != nil {
		return err
	}

	return s.render(w, http.StatusOK, tmpl, v, map[string]any{
		listName:     page.Posts,
		filterName:   ff,
		"page":       page,
		"categories": categories,
	})
}

func (s *Server) postDetail(w http.ResponseWriter, r *http.Request, v *Visitor) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	p, categories, err := s.svc.Posts.Get(r.Context(), id)
	if err != nil {
		return err
	}
	return s.render(w, http.StatusOK, "new.html", v, map[string]any{
		"post":       p,
		"categories": categories,
		"time_now":   s.now().UTC(),
	})
}

func (s *Server) postCreate(vr variant) pageHandler {
	return func(w http.ResponseWriter, r *http.Request, v *Visitor) error {
		known, err := s.svc.Categories.ListAll(r.Context())
		if err != nil {
			return err
		}
		data := map[string]any{
			"page_title": vr.createTitle,
			"categories": known,
		}

		if r.Method != http.MethodPost {
			data["form"] = &postForm{Errors: map[string]string{}}
			return s.render(w, http.StatusOK, "create_post.html", v, data)
		}

		form, err := parsePostForm(r, known)
		if err != nil {
			return err
		}
		if !form.Valid() {
			data["form"] = form
			return s.render(w, http.StatusOK, "create_post.html", v, data)
		}

		p := &post.Post{AuthorID: v.UserID(), Kind: vr.kind, Title: form.Title, Text: form.Text}
		if err := s.svc.Posts.Create(r.Context(), p, form.CategoryIDs); err != nil {
			return err
		}
		http.Redirect(w, r, listURL, http.StatusFound)
		return nil
	}
}

func (s *Server) postEdit(vr variant) pageHandler {
	return func(w http.ResponseWriter, r *http.Request, v *Visitor) error {
		id, err := pathID(r)
		if err != nil {
			return err
		}
		p, current, err := s.svc.Posts.Get(r.Context(), id)
		if err != nil {
			return err
		}
		known, err := s.svc.Categories.ListAll(r.Context())
		if err != nil {
			return err
		}
		data := map[string]any{
			"page_title": vr.editTitle,
			"categories": known,
			"post":       p,
		}

		if r.Method != http.MethodPost {
			data["form"] = postFormFrom(p, current)
			return s.render(w, http.StatusOK, "create_post.html", v, data)
		}

		form, err := parsePostForm(r, known)
		if err != nil {
			return err
		}
		if !form.Valid() {
			data["form"] = form
			return s.render(w, http.StatusOK, "create_post.html", v, data)
		}

		p.Title, p.Text = form.Title, form.Text
		if err := s.svc.Posts.Update(r.Context(), p, form.CategoryIDs); err != nil {
			return err
		}
		http.Redirect(w, r, listURL, http.StatusFound)
		return nil
	}
}

func (s *Server) postDelete(vr variant) pageHandler {
	return func(w http.ResponseWriter, r *http.Request, v *Visitor) error {
		id, err := pathID(r)
		if err != nil {
			return err
		}
		p, _, err := s.svc.Posts.Get(r.Context(), id)
		if err != nil {
			return err
		}

		if r.Method != http.MethodPost {
			return s.render(w, http.StatusOK, "post_delete.html", v, map[string]any{
				"post":              p,
				"page_title":        vr.deleteTitle,
				"previous_page_url": listURL,
			})
		}

		if err := s.svc.Posts.Delete(r.Context(), id); err != nil && !errors.Is(err, post.ErrNotFound) {
			return err
		}
		http.Redirect(w, r, listURL, http.StatusFound)
		return nil
	}
}

// index queues the demo tasks and answers immediately.
func (s *Server) index(w http.ResponseWriter, r *http.Request, _ *Visitor) error {
	if err := s.svc.Tasks.Enqueue(r.Context(), app.TaskPrinting, 10); err != nil {
		return err
	}
	if err := s.svc.Tasks.Enqueue(r.Context(), app.TaskHello); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := w.Write([]byte("Hi!"))
	return err
}
