package post

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreviewShortText(t *testing.T) {
	p := &Post{Text: "Short news"}
	if got := p.Preview(); got != "Short news..." {
		t.Fatalf("unexpected preview: %q", got)
	}
}

func TestPreviewCutsAt124Runes(t *testing.T) {
	p := &Post{Text: strings.Repeat("я", 200)}
	got := p.Preview()
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, "...")); n != 124 {
		t.Fatalf("expected 124 runes before ellipsis, got %d", n)
	}
}

func TestPreviewKeepsTextAsWritten(t *testing.T) {
	p := &Post{Text: "Rates: if a<b then buy,\n  else sell"}
	if got := p.Preview(); got != "Rates: if a<b then buy,\n  else sell..." {
		t.Fatalf("unexpected preview: %q", got)
	}
}
