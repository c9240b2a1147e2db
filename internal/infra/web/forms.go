package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/post"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

// filterForm is the list/search query string as typed by the visitor.
type filterForm struct {
	Title     string
	Author    string
	DateAfter string
	Category  string
	Errors    map[string]string
}

func parseFilter(q url.Values) (*filterForm, post.Filter) {
	ff := &filterForm{
		Title:     strings.TrimSpace(q.Get("title")),
		Author:    strings.TrimSpace(q.Get("author")),
		DateAfter: strings.TrimSpace(q.Get("date_after")),
		Category:  strings.TrimSpace(q.Get("category")),
		Errors:    map[string]string{},
	}
	f := post.Filter{Title: ff.Title, Author: ff.Author}

	if ff.DateAfter != "" {
		after, err := time.Parse(dateLayout, ff.DateAfter)
		if err != nil {
			ff.Errors["date_after"] = "Enter a valid date (YYYY-MM-DD)."
		} else {
			f.After = after
		}
	}
	if ff.Category != "" {
		id, err := strconv.ParseInt(ff.Category, 10, 64)
		if err != nil || id <= 0 {
			ff.Errors["category"] = "Select a valid choice."
		} else {
			f.CategoryID = id
		}
	}
	return ff, f
}

// Page returns the query string for another page of the same filtered listing.
func (ff *filterForm) Page(n int) string {
	q := url.Values{}
	for key, val := range map[string]string{
		"title":      ff.Title,
		"author":     ff.Author,
		"date_after": ff.DateAfter,
		"category":   ff.Category,
	} {
		if val != "" {
			q.Set(key, val)
		}
	}
	q.Set("page", strconv.Itoa(n))
	return "?" + q.Encode()
}

// parsePage reads ?page=. A missing value is page 1; anything else that is not a positive integer is a 404.
func parsePage(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errNotFound
	}
	return n, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errNotFound
	}
	return id, nil
}

// postForm is the create/edit form.
type postForm struct {
	Title       string
	Text        string
	CategoryIDs []int64
	Errors      map[string]string
}

func postFormFrom(p *post.Post, categories []*category.Category) *postForm {
	pf := &postForm{Title: p.Title, Text: p.Text, Errors: map[string]string{}}
	for _, c := range categories {
		pf.CategoryIDs = append(pf.CategoryIDs, c.ID)
	}
	return pf
}

// parsePostForm reads and validates the submitted form against the known categories.
func parsePostForm(r *http.Request, known []*category.Category) (*postForm, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	pf := &postForm{
		Title:  strings.TrimSpace(r.PostForm.Get("title")),
		Text:   strings.TrimSpace(r.PostForm.Get("text")),
		Errors: map[string]string{},
	}

	switch {
	case pf.Title == "":
		pf.Errors["title"] = "This field is required."
	case utf8.RuneCountInString(pf.Title) > post.MaxTitleLength:
		pf.Errors["title"] = "Ensure this value has at most 128 characters."
	}
	if pf.Text == "" {
		pf.Errors["text"] = "This field is required."
	}
	if pf.Title != "" && pf.Title == pf.Text {
		pf.Errors["text"] = "The text must not be identical to the title."
	}

	exists := make(map[int64]bool, len(known))
	for _, c := range known {
		exists[c.ID] = true
	}
	for _, raw := range r.PostForm["categories"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || !exists[id] {
			pf.Errors["categories"] = "Select a valid choice. " + raw + " is not one of the available choices."
			break
		}
		pf.CategoryIDs = append(pf.CategoryIDs, id)
	}
	return pf, nil
}

func (pf *postForm) Valid() bool { return len(pf.Errors) == 0 }
