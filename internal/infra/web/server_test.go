package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"newsportal/internal/app"
	"newsportal/internal/domain/post"
	"newsportal/internal/domain/user"
	"newsportal/internal/testsupport"

	"github.com/PuerkitoBio/goquery"
)

type testEnv struct {
	store    *testsupport.Store
	sender   *testsupport.RecordingSender
	enqueuer *testsupport.RecordingEnqueuer
	accounts *app.AccountService
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := testsupport.NewStore()
	logger := testsupport.Logger()
	sender := &testsupport.RecordingSender{}
	enq := &testsupport.RecordingEnqueuer{}

	notifier := app.NewNotificationService(store.Posts(), store.Categories(), sender, nil,
		app.NotificationSettings{SiteURL: "http://news.test", FromEmail: "news@news.test"}, logger)
	posts := app.NewPostService(store.Posts(), store.Categories(), notifier, logger)
	accounts := app.NewAccountService(store.Users(), store.Users(), time.Hour, logger)

	srv := NewServer(Services{
		Posts:      posts,
		Categories: app.NewCategoryService(store.Categories(), posts, logger),
		Accounts:   accounts,
		Tasks:      enq,
	}, Settings{}, logger)

	return &testEnv{store: store, sender: sender, enqueuer: enq, accounts: accounts, handler: srv.Handler()}
}

// login opens a session for u and returns its cookie.
func (e *testEnv) login(t *testing.T, u *user.User) *http.Cookie {
	t.Helper()
	sess, err := e.accounts.StartSession(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return &http.Cookie{Name: sessionCookie, Value: sess.ID}
}

func (e *testEnv) author(t *testing.T) (*user.User, *http.Cookie) {
	t.Helper()
	u := e.store.AddUser("writer", "writer@example.com")
	e.store.Grant(u.ID, user.GroupAuthors)
	return u, e.login(t, u)
}

func (e *testEnv) do(method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedPosts(t *testing.T, authorID int64, n int) []*post.Post {
	t.Helper()
	var posts []*post.Post
	for i := 1; i <= n; i++ {
		p := &post.Post{AuthorID: authorID, Kind: post.KindNews, Title: fmt.Sprintf("Post %02d", i), Text: "text"}
		if err := e.store.Posts().Create(context.Background(), p); err != nil {
			t.Fatalf("create post: %v", err)
		}
		posts = append(posts, p)
	}
	return posts
}

// listedTitles returns the titles of the posts rendered on a list page, in page order.
func listedTitles(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(w.Body)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return doc.Find("article h2 a").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	})
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func expectRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	expectStatus(t, w, http.StatusFound)
	if got := w.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

func TestRootRedirectsToList(t *testing.T) {
	e := newTestEnv(t)
	expectRedirect(t, e.do(http.MethodGet, "/", nil, nil), "/news/")
}

func TestPostListPaginatesNewestFirst(t *testing.T) {
	e := newTestEnv(t)
	u := e.store.AddUser("ann", "ann@example.com")
	e.seedPosts(t, u.ID, 23)

	w := e.do(http.MethodGet, "/news/", nil, nil)
	expectStatus(t, w, http.StatusOK)
	titles := listedTitles(t, w)
	if len(titles) != 10 {
		t.Fatalf("expected 10 posts on the first page, got %d", len(titles))
	}
	for i, title := range titles {
		if want := fmt.Sprintf("Post %02d", 23-i); title != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, title)
		}
	}

	w = e.do(http.MethodGet, "/news/?page=3", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if titles := listedTitles(t, w); len(titles) != 3 || titles[2] != "Post 01" {
		t.Fatalf("expected posts 03..01 on the last page, got %v", titles)
	}

	expectStatus(t, e.do(http.MethodGet, "/news/?page=4", nil, nil), http.StatusNotFound)
	expectStatus(t, e.do(http.MethodGet, "/news/?page=abc", nil, nil), http.StatusNotFound)
}

func TestPostListShowsTextPreview(t *testing.T) {
	e := newTestEnv(t)
	u := e.store.AddUser("ann", "ann@example.com")
	p := &post.Post{AuthorID: u.ID, Kind: post.KindNews, Title: "Markets", Text: "Rates: if a<b then buy, else sell"}
	if err := e.store.Posts().Create(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}

	w := e.do(http.MethodGet, "/news/", nil, nil)
	expectStatus(t, w, http.StatusOK)
	doc, err := goquery.NewDocumentFromReader(w.Body)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	if got := doc.Find("article p").Last().Text(); got != "Rates: if a<b then buy, else sell..." {
		t.Fatalf("unexpected preview %q", got)
	}
}

func TestSearchFiltersByTitle(t *testing.T) {
	e := newTestEnv(t)
	u := e.store.AddUser("ann", "ann@example.com")
	e.seedPosts(t, u.ID, 3)

	w := e.do(http.MethodGet, "/news/search?title=post+02", nil, nil)
	expectStatus(t, w, http.StatusOK)
	body := w.Body.String()
	if !strings.Contains(body, "Post 02") || strings.Contains(body, "Post 01") {
		t.Fatalf("unexpected search results:\n%s", body)
	}

	w = e.do(http.MethodGet, "/news/search?date_after=yesterday", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Enter a valid date") {
		t.Fatalf("expected a date validation message")
	}
}

func TestPostDetail(t *testing.T) {
	e := newTestEnv(t)
	u := e.store.AddUser("ann", "ann@example.com")
	p := e.seedPosts(t, u.ID, 1)[0]

	w := e.do(http.MethodGet, fmt.Sprintf("/news/%d", p.ID), nil, nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Post 01") {
		t.Fatalf("expected post title in detail page")
	}

	expectStatus(t, e.do(http.MethodGet, "/news/999", nil, nil), http.StatusNotFound)
	expectStatus(t, e.do(http.MethodGet, "/news/nope", nil, nil), http.StatusNotFound)
}

func TestCreateRequiresLoginAndPermission(t *testing.T) {
	e := newTestEnv(t)

	expectRedirect(t, e.do(http.MethodGet, "/news/create", nil, nil), "/accounts/login?next=%2Fnews%2Fcreate")

	reader := e.store.AddUser("reader", "reader@example.com")
	w := e.do(http.MethodGet, "/articles/create", nil, e.login(t, reader))
	expectStatus(t, w, http.StatusForbidden)

	_, cookie := e.author(t)
	w = e.do(http.MethodGet, "/articles/create", nil, cookie)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Create article") {
		t.Fatalf("expected the article page title")
	}
}

func TestCreateNewsNotifiesSubscribers(t *testing.T) {
	e := newTestEnv(t)
	_, cookie := e.author(t)
	sub := e.store.AddUser("sub", "sub@example.com")
	tech := e.store.AddCategory("Tech")
	e.store.Subscribe(tech.ID, sub.ID)

	form := url.Values{"title": {"Launch"}, "text": {"We launched."}, "categories": {fmt.Sprint(tech.ID)}}
	expectRedirect(t, e.do(http.MethodPost, "/news/create", form, cookie), "/news/")

	if e.sender.Count() != 1 {
		t.Fatalf("expected one notification, got %d", e.sender.Count())
	}
	msg := e.sender.Messages[0]
	if msg.Subject != "Launch" || len(msg.To) != 1 || msg.To[0] != "sub@example.com" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	posts, _, _ := e.store.Posts().List(context.Background(), post.Filter{}, 10, 0)
	if len(posts) != 1 || posts[0].Kind != post.KindNews {
		t.Fatalf("expected one news post, got %+v", posts)
	}

	form = url.Values{"title": {"Essay"}, "text": {"Long read."}}
	expectRedirect(t, e.do(http.MethodPost, "/articles/create", form, cookie), "/news/")
	posts, _, _ = e.store.Posts().List(context.Background(), post.Filter{}, 10, 0)
	if posts[0].Kind != post.KindArticle {
		t.Fatalf("expected the article kind, got %s", posts[0].Kind)
	}
	if e.sender.Count() != 1 {
		t.Fatalf("a post without categories must not notify")
	}
}

func TestCreateInvalidFormRerenders(t *testing.T) {
	e := newTestEnv(t)
	_, cookie := e.author(t)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing title", url.Values{"text": {"body"}}, "This field is required."},
		{"long title", url.Values{"title": {strings.Repeat("x", 129)}, "text": {"body"}}, "at most 128 characters"},
		{"title equals text", url.Values{"title": {"same"}, "text": {"same"}}, "must not be identical"},
		{"unknown category", url.Values{"title": {"t"}, "text": {"b"}, "categories": {"42"}}, "Select a valid choice."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(http.MethodPost, "/news/create", tt.form, cookie)
			expectStatus(t, w, http.StatusOK)
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Fatalf("expected %q in:\n%s", tt.want, w.Body.String())
			}
		})
	}
	if e.store.PostCount() != 0 {
		t.Fatalf("invalid forms must not create posts")
	}
}

func TestEditAndDelete(t *testing.T) {
	e := newTestEnv(t)
	u, cookie := e.author(t)
	id := e.seedPosts(t, u.ID, 1)[0].ID
	path := func(format string) string { return fmt.Sprintf(format, id) }

	w := e.do(http.MethodGet, path("/articles/%d/edit"), nil, cookie)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Edit article") {
		t.Fatalf("expected edit article title")
	}

	form := url.Values{"title": {"Renamed"}, "text": {"new text"}}
	expectRedirect(t, e.do(http.MethodPost, path("/news/%d/edit"), form, cookie), "/news/")
	p, _ := e.store.Posts().GetByID(context.Background(), id)
	if p.Title != "Renamed" {
		t.Fatalf("expected title to change, got %q", p.Title)
	}

	w = e.do(http.MethodGet, path("/news/%d/delete"), nil, cookie)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Delete news") || !strings.Contains(w.Body.String(), `href="/news/"`) {
		t.Fatalf("expected delete confirmation page")
	}
	expectRedirect(t, e.do(http.MethodPost, path("/news/%d/delete"), url.Values{}, cookie), "/news/")
	if e.store.PostCount() != 0 {
		t.Fatalf("expected post to be deleted")
	}
	expectStatus(t, e.do(http.MethodGet, path("/news/%d/edit"), nil, cookie), http.StatusNotFound)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	tech := e.store.AddCategory("Tech")
	target := fmt.Sprintf("/news/category/%d/subscribe", tech.ID)

	w := e.do(http.MethodGet, target, nil, nil)
	expectStatus(t, w, http.StatusFound)
	if !strings.HasPrefix(w.Header().Get("Location"), "/accounts/login?next=") {
		t.Fatalf("anonymous subscribe must redirect to login")
	}

	u := e.store.AddUser("reader", "reader@example.com")
	cookie := e.login(t, u)
	for i := 0; i < 2; i++ {
		w = e.do(http.MethodGet, target, nil, cookie)
		expectStatus(t, w, http.StatusOK)
		if !strings.Contains(w.Body.String(), "You are subscribed to the category") {
			t.Fatalf("expected the subscribed message")
		}
	}
	if n := e.store.SubscriberCount(tech.ID); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}
	if e.sender.Count() != 0 {
		t.Fatalf("subscribing must not notify")
	}

	w = e.do(http.MethodGet, fmt.Sprintf("/news/category/%d", tech.ID), nil, cookie)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "You are subscribed to this category.") {
		t.Fatalf("category page must reflect the subscription")
	}

	expectStatus(t, e.do(http.MethodGet, "/news/category/999/subscribe", nil, cookie), http.StatusNotFound)
	expectStatus(t, e.do(http.MethodGet, "/news/category/999", nil, cookie), http.StatusNotFound)
}

func TestUpgradeIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	expectRedirect(t, e.do(http.MethodGet, "/sign/upgrade", nil, nil), "/accounts/login?next=%2Fsign%2Fupgrade")

	u := e.store.AddUser("reader", "reader@example.com")
	cookie := e.login(t, u)
	for i := 0; i < 2; i++ {
		expectRedirect(t, e.do(http.MethodGet, "/sign/upgrade", nil, cookie), "/news/")
	}
	if n := e.store.Users().GroupSize(user.GroupAuthors); n != 1 {
		t.Fatalf("expected one author, got %d", n)
	}
	expectStatus(t, e.do(http.MethodGet, "/news/create", nil, cookie), http.StatusOK)
}

func TestSignupLoginLogout(t *testing.T) {
	e := newTestEnv(t)

	bad := url.Values{"username": {"new_user"}, "email": {"new@example.com"}, "password1": {"secret-pass"}, "password2": {"other-pass"}}
	w := e.do(http.MethodPost, "/sign/signup", bad, nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "didn&#39;t match") {
		t.Fatalf("expected password mismatch message:\n%s", w.Body.String())
	}

	good := url.Values{"username": {"new_user"}, "email": {"new@example.com"}, "password1": {"secret-pass"}, "password2": {"secret-pass"}}
	expectRedirect(t, e.do(http.MethodPost, "/sign/signup", good, nil), "/news/")
	if e.store.Users().GroupSize(user.GroupSubscribers) != 1 {
		t.Fatalf("new users join the subscribers group")
	}

	w = e.do(http.MethodPost, "/accounts/login", url.Values{"username": {"new_user"}, "password": {"wrong"}}, nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Please enter a correct username and password.") {
		t.Fatalf("expected login error")
	}

	w = e.do(http.MethodPost, "/accounts/login",
		url.Values{"username": {"new_user"}, "password": {"secret-pass"}, "next": {"/sign/upgrade"}}, nil)
	expectRedirect(t, w, "/sign/upgrade")
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatalf("expected a session cookie")
	}
	expectRedirect(t, e.do(http.MethodGet, "/sign/upgrade", nil, cookie), "/news/")

	expectRedirect(t, e.do(http.MethodPost, "/accounts/logout", nil, cookie), "/news/")
	expectStatus(t, e.do(http.MethodGet, "/sign/upgrade", nil, cookie), http.StatusFound)
}

func TestIndexEnqueuesDemoTasks(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodGet, "/news/index", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if w.Body.String() != "Hi!" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	calls := e.enqueuer.Calls
	if len(calls) != 2 || calls[0].Name != app.TaskPrinting || calls[1].Name != app.TaskHello {
		t.Fatalf("unexpected enqueued tasks: %+v", calls)
	}
	if len(calls[0].Args) != 1 || calls[0].Args[0] != 10 {
		t.Fatalf("printing must be called with 10, got %v", calls[0].Args)
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"/news/create":         "/news/create",
		"//evil.example.com":   "",
		"https://evil.example": "",
		"/\\evil":              "",
	}
	for in, want := range tests {
		if got := safeNext(in); got != want {
			t.Errorf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
