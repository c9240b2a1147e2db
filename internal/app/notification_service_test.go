package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"newsportal/internal/domain/post"
	"newsportal/internal/testsupport"
)

const testSiteURL = "https://news.example.com"

type fixture struct {
	store    *testsupport.Store
	sender   *testsupport.RecordingSender
	telegram *testsupport.RecordingTelegram
	notifier *NotificationService
	posts    *PostService
	author   int64
}

func newFixture(t *testing.T, settings NotificationSettings) *fixture {
	t.Helper()
	store := testsupport.NewStore()
	sender := &testsupport.RecordingSender{}
	tg := &testsupport.RecordingTelegram{}
	if settings.SiteURL == "" {
		settings.SiteURL = testSiteURL
	}
	if settings.FromEmail == "" {
		settings.FromEmail = "news@example.com"
	}
	notifier := NewNotificationService(store.Posts(), store.Categories(), sender, tg, settings, testsupport.Logger())
	posts := NewPostService(store.Posts(), store.Categories(), notifier, testsupport.Logger())
	author := store.AddUser("author", "author@x.com")
	return &fixture{store: store, sender: sender, telegram: tg, notifier: notifier, posts: posts, author: author.ID}
}

func (f *fixture) newPost(t *testing.T, title string, categoryIDs ...int64) *post.Post {
	t.Helper()
	p := &post.Post{AuthorID: f.author, Kind: post.KindNews, Title: title, Text: "Body of " + title}
	if err := f.posts.Create(context.Background(), p, categoryIDs); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNotificationEndToEnd(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	ctx := context.Background()

	a := f.store.AddUser("a", "a@x.com")
	b := f.store.AddUser("b", "b@x.com")
	tech := f.store.AddCategory("Tech")
	world := f.store.AddCategory("World")
	f.store.Subscribe(tech.ID, a.ID)
	f.store.Subscribe(world.ID, a.ID)
	f.store.Subscribe(world.ID, b.ID)

	p := f.newPost(t, "Launch day")
	if f.sender.Count() != 0 {
		t.Fatalf("expected no email for a post without categories, got %d", f.sender.Count())
	}

	if err := f.posts.SetCategories(ctx, p.ID, []int64{tech.ID, world.ID}); err != nil {
		t.Fatalf("SetCategories: %v", err)
	}
	if f.sender.Count() != 1 {
		t.Fatalf("expected exactly one send, got %d", f.sender.Count())
	}

	msg := f.sender.Messages[0]
	if want := []string{"a@x.com", "a@x.com", "b@x.com"}; !equalStrings(msg.To, want) {
		t.Fatalf("recipients = %v, want %v", msg.To, want)
	}
	if msg.Subject != "Launch day" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.From != "news@example.com" {
		t.Fatalf("from = %q", msg.From)
	}
	if msg.TextBody != "" {
		t.Fatalf("expected empty plain-text body, got %q", msg.TextBody)
	}
	link := fmt.Sprintf("%s/news/%d", testSiteURL, p.ID)
	if !strings.Contains(msg.HTMLBody, link) {
		t.Fatalf("expected link %s in body:\n%s", link, msg.HTMLBody)
	}
	if !strings.Contains(msg.HTMLBody, "Body of Launch day...") {
		t.Fatalf("expected preview in body:\n%s", msg.HTMLBody)
	}
}

func TestNotificationEmptySubscribersStillSends(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	quiet := f.store.AddCategory("Quiet")

	f.newPost(t, "Nobody reads this", quiet.ID)

	if f.sender.Count() != 1 {
		t.Fatalf("expected one send call, got %d", f.sender.Count())
	}
	if len(f.sender.Messages[0].To) != 0 {
		t.Fatalf("expected empty recipient list, got %v", f.sender.Messages[0].To)
	}
}

func TestNotificationOncePerAddEvent(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	ctx := context.Background()
	a := f.store.AddUser("a", "a@x.com")
	tech := f.store.AddCategory("Tech")
	world := f.store.AddCategory("World")
	f.store.Subscribe(tech.ID, a.ID)

	p := f.newPost(t, "Two steps", tech.ID)
	if f.sender.Count() != 1 {
		t.Fatalf("expected one send after first add, got %d", f.sender.Count())
	}

	if err := f.posts.SetCategories(ctx, p.ID, []int64{tech.ID, world.ID}); err != nil {
		t.Fatalf("SetCategories: %v", err)
	}
	if f.sender.Count() != 2 {
		t.Fatalf("expected one more send after second add, got %d", f.sender.Count())
	}
	// Second event reads the full set, not only the delta.
	if want := []string{"a@x.com"}; !equalStrings(f.sender.Messages[1].To, want) {
		t.Fatalf("recipients = %v, want %v", f.sender.Messages[1].To, want)
	}
}

func TestNotificationNotOnRemovalOrNoChange(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	ctx := context.Background()
	tech := f.store.AddCategory("Tech")
	world := f.store.AddCategory("World")

	p := f.newPost(t, "Shrinking", tech.ID, world.ID)
	if f.sender.Count() != 1 {
		t.Fatalf("expected one send, got %d", f.sender.Count())
	}

	if err := f.posts.SetCategories(ctx, p.ID, []int64{tech.ID}); err != nil {
		t.Fatalf("SetCategories remove: %v", err)
	}
	if err := f.posts.SetCategories(ctx, p.ID, []int64{tech.ID}); err != nil {
		t.Fatalf("SetCategories same: %v", err)
	}
	if err := f.posts.SetCategories(ctx, p.ID, nil); err != nil {
		t.Fatalf("SetCategories clear: %v", err)
	}
	if f.sender.Count() != 1 {
		t.Fatalf("removals must not notify, got %d sends", f.sender.Count())
	}
}

func TestNotificationNotOnSubscribe(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	tech := f.store.AddCategory("Tech")
	f.newPost(t, "Existing", tech.ID)
	before := f.sender.Count()

	categories := NewCategoryService(f.store.Categories(), f.posts, testsupport.Logger())
	u := f.store.AddUser("late", "late@x.com")
	if _, err := categories.Subscribe(context.Background(), tech.ID, u.ID); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if f.sender.Count() != before {
		t.Fatalf("subscribing must not notify")
	}
}

func TestNotificationDeduplicateOptIn(t *testing.T) {
	f := newFixture(t, NotificationSettings{Deduplicate: true})
	a := f.store.AddUser("a", "a@x.com")
	b := f.store.AddUser("b", "b@x.com")
	tech := f.store.AddCategory("Tech")
	world := f.store.AddCategory("World")
	f.store.Subscribe(tech.ID, a.ID)
	f.store.Subscribe(world.ID, a.ID)
	f.store.Subscribe(world.ID, b.ID)

	f.newPost(t, "Dedup", tech.ID, world.ID)

	if want := []string{"a@x.com", "b@x.com"}; !equalStrings(f.sender.Messages[0].To, want) {
		t.Fatalf("recipients = %v, want %v", f.sender.Messages[0].To, want)
	}
}

func TestNotificationSendErrorPropagates(t *testing.T) {
	f := newFixture(t, NotificationSettings{TelegramChannelID: -100})
	f.sender.Err = errors.New("smtp: connection refused")
	tech := f.store.AddCategory("Tech")

	p := &post.Post{AuthorID: f.author, Kind: post.KindNews, Title: "Broken", Text: "x"}
	err := f.posts.Create(context.Background(), p, []int64{tech.ID})
	if err == nil || !errors.Is(err, f.sender.Err) {
		t.Fatalf("expected send error to propagate, got %v", err)
	}
	if len(f.telegram.Messages) != 0 {
		t.Fatalf("expected no announcement after a failed send")
	}
}

func TestNotificationAnnouncesInTelegram(t *testing.T) {
	f := newFixture(t, NotificationSettings{TelegramChannelID: -100})
	f.telegram.Err = errors.New("telegram down")
	tech := f.store.AddCategory("Tech")

	p := f.newPost(t, "Q&A", tech.ID)

	if len(f.telegram.Messages) != 1 {
		t.Fatalf("expected one announcement, got %d", len(f.telegram.Messages))
	}
	got := f.telegram.Messages[0]
	if got.ChatID != -100 {
		t.Fatalf("chat id = %d", got.ChatID)
	}
	if !strings.Contains(got.Text, "Q&amp;A") || !strings.Contains(got.Text, fmt.Sprintf("/news/%d", p.ID)) {
		t.Fatalf("unexpected announcement %q", got.Text)
	}
}

func TestAsyncHookEnqueues(t *testing.T) {
	store := testsupport.NewStore()
	enq := &testsupport.RecordingEnqueuer{}
	posts := NewPostService(store.Posts(), store.Categories(), NewAsyncCategoryHook(enq), testsupport.Logger())
	tech := store.AddCategory("Tech")

	p := &post.Post{Title: "Later", Text: "x", Kind: post.KindNews}
	if err := posts.Create(context.Background(), p, []int64{tech.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(enq.Calls) != 1 {
		t.Fatalf("expected one enqueue, got %d", len(enq.Calls))
	}
	call := enq.Calls[0]
	if call.Name != TaskNotifyPost || len(call.Args) != 1 || call.Args[0] != p.ID {
		t.Fatalf("unexpected enqueue %+v", call)
	}
}

func TestWeeklyDigest(t *testing.T) {
	f := newFixture(t, NotificationSettings{})
	a := f.store.AddUser("a", "a@x.com")
	tech := f.store.AddCategory("Tech")
	world := f.store.AddCategory("World")
	f.store.AddCategory("Empty")
	f.store.Subscribe(tech.ID, a.ID)
	f.store.Subscribe(world.ID, a.ID)

	f.newPost(t, "Fresh tech", tech.ID)
	sendsBefore := f.sender.Count()

	f.notifier.now = func() time.Time { return f.store.Now() }
	if err := f.notifier.SendWeeklyDigest(context.Background()); err != nil {
		t.Fatalf("SendWeeklyDigest: %v", err)
	}

	digests := f.sender.Messages[sendsBefore:]
	if len(digests) != 1 {
		t.Fatalf("expected one digest (only Tech has new posts), got %d", len(digests))
	}
	if digests[0].Subject != "Weekly digest: Tech" {
		t.Fatalf("subject = %q", digests[0].Subject)
	}
	if !strings.Contains(digests[0].HTMLBody, "Fresh tech") {
		t.Fatalf("digest body misses post title:\n%s", digests[0].HTMLBody)
	}
}
