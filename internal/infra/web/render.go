package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

const layoutFile = "templates/layout.html"

var pageFiles = []string{
	"news.html",
	"post_search.html",
	"new.html",
	"create_post.html",
	"post_delete.html",
	"category.html",
	"subscribers.html",
	"signup.html",
	"login.html",
	"error.html",
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.UTC().Format("02.01.2006 15:04") },
	"contains": func(ids []int64, id int64) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	},
}

// pageSet holds one template tree per page, each sharing the layout.
type pageSet struct {
	pages map[string]*template.Template
}

func mustLoadPages() *pageSet {
	ps := &pageSet{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, name := range pageFiles {
		ps.pages[name] = template.Must(
			template.New(name).Funcs(templateFuncs).ParseFS(templatesFS, layoutFile, "templates/"+name),
		)
	}
	return ps
}

// render executes the page into a buffer first so a template error never leaves half a page behind.
func (s *Server) render(w http.ResponseWriter, status int, name string, v *Visitor, data map[string]any) error {
	tmpl, ok := s.pages.pages[name]
	if !ok {
		return fmt.Errorf("unknown page template %q", name)
	}
	if data == nil {
		data = map[string]any{}
	}
	data["visitor"] = v

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	err := s.render(w, status, "error.html", newVisitor(nil, nil), map[string]any{
		"status":  status,
		"message": msg,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to render error page")
		http.Error(w, msg, status)
	}
}
