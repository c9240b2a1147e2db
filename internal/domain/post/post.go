package post

import (
	"time"
	"unicode/utf8"
)

// Kind distinguishes news items from long-form articles. Both live in the same table.
type Kind string

const (
	KindNews    Kind = "news"
	KindArticle Kind = "article"
)

const (
	MaxTitleLength = 128
	previewLength  = 124
)

// Post represents a publishable news item or article.
type Post struct {
	ID         int64
	AuthorID   int64
	AuthorName string // username, filled on reads
	Kind       Kind
	Title      string
	Text       string
	CreatedAt  time.Time
}

// Preview returns the first 124 characters of the post's text followed by "...".
func (p *Post) Preview() string {
	text := p.Text
	if utf8.RuneCountInString(text) > previewLength {
		text = string([]rune(text)[:previewLength])
	}
	return text + "..."
}
