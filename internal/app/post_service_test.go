package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/post"
)

func TestPostListPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	ctx := context.Background()
	for i := 0; i < 23; i++ {
		f.newPost(t, fmt.Sprintf("post %02d", i))
	}

	page1, err := f.posts.List(ctx, post.Filter{}, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page1.Posts) != PageSize {
		t.Fatalf("expected %d posts, got %d", PageSize, len(page1.Posts))
	}
	if page1.Total != 23 || page1.NumPage != 3 {
		t.Fatalf("unexpected totals: %+v", page1)
	}
	if page1.Posts[0].Title != "post 22" {
		t.Fatalf("expected newest first, got %q", page1.Posts[0].Title)
	}
	for i := 1; i < len(page1.Posts); i++ {
		if !page1.Posts[i-1].CreatedAt.After(page1.Posts[i].CreatedAt) {
			t.Fatalf("posts not strictly descending at %d", i)
		}
	}

	page3, err := f.posts.List(ctx, post.Filter{}, 3)
	if err != nil {
		t.Fatalf("List page 3: %v", err)
	}
	if len(page3.Posts) != 3 || page3.HasNext() || !page3.HasPrevious() {
		t.Fatalf("unexpected last page: %d posts, next=%v prev=%v", len(page3.Posts), page3.HasNext(), page3.HasPrevious())
	}

	page0, err := f.posts.List(ctx, post.Filter{}, 0)
	if err != nil {
		t.Fatalf("List page 0: %v", err)
	}
	if page0.Number != 1 {
		t.Fatalf("expected page clamp to 1, got %d", page0.Number)
	}
}

func TestPostListFilters(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	ctx := context.Background()
	tech := f.store.AddCategory("Tech")
	f.newPost(t, "Go 1.24 released", tech.ID)
	f.newPost(t, "Weather today")

	got, err := f.posts.List(ctx, post.Filter{Title: "go"}, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got.Total != 1 || got.Posts[0].Title != "Go 1.24 released" {
		t.Fatalf("title filter mismatch: %+v", got.Posts)
	}

	got, err = f.posts.List(ctx, post.Filter{CategoryID: tech.ID}, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got.Total != 1 {
		t.Fatalf("category filter mismatch: %d", got.Total)
	}

	got, err = f.posts.List(ctx, post.Filter{Author: "AUTH"}, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got.Total != 2 {
		t.Fatalf("author filter mismatch: %d", got.Total)
	}
}

func TestPostGetNotFound(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	_, _, err := f.posts.Get(context.Background(), 999)
	if !errors.Is(err, post.ErrNotFound) {
		t.Fatalf("expected post.ErrNotFound, got %v", err)
	}
}

func TestPostUpdateAndDelete(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	ctx := context.Background()
	tech := f.store.AddCategory("Tech")
	p := f.newPost(t, "Draft")

	p.Title = "Final"
	p.Kind = post.KindArticle
	if err := f.posts.Update(ctx, p, []int64{tech.ID}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, categories, err := f.posts.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Final" || got.Kind != post.KindArticle {
		t.Fatalf("update not stored: %+v", got)
	}
	if len(categories) != 1 || categories[0].ID != tech.ID {
		t.Fatalf("categories not stored: %+v", categories)
	}
	if f.sender.Count() != 1 {
		t.Fatalf("adding a category on edit must notify once, got %d", f.sender.Count())
	}

	if err := f.posts.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.posts.Delete(ctx, p.ID); !errors.Is(err, post.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestSetCategoriesUnknownCategory(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	p := f.newPost(t, "Orphan")
	err := f.posts.SetCategories(context.Background(), p.ID, []int64{12345})
	if !errors.Is(err, category.ErrNotFound) {
		t.Fatalf("expected category.ErrNotFound, got %v", err)
	}
	if f.sender.Count() != 0 {
		t.Fatalf("failed add must not notify")
	}
}

func TestDiffIDs(t *testing.T) {
	tests := []struct {
		name       string
		have, want []int64
		add, del   []int64
	}{
		{"from empty", nil, []int64{1, 2}, []int64{1, 2}, nil},
		{"no change", []int64{1, 2}, []int64{2, 1}, nil, nil},
		{"swap", []int64{1, 2}, []int64{2, 3}, []int64{3}, []int64{1}},
		{"clear", []int64{1}, nil, nil, []int64{1}},
		{"duplicates in want", nil, []int64{4, 4, 5}, []int64{4, 5}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			add, del := diffIDs(tt.have, tt.want)
			if fmt.Sprint(add) != fmt.Sprint(tt.add) || fmt.Sprint(del) != fmt.Sprint(tt.del) {
				t.Fatalf("diffIDs(%v, %v) = %v, %v; want %v, %v", tt.have, tt.want, add, del, tt.add, tt.del)
			}
		})
	}
}
