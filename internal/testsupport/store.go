// Package testsupport provides in-memory implementations of the domain repositories
// and recording transports for use in tests.
package testsupport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/post"
	"newsportal/internal/domain/task"
	"newsportal/internal/domain/user"
)

// Store is the shared state behind the in-memory repositories.
type Store struct {
	mu sync.Mutex

	nextID int64
	clock  time.Time

	posts          map[int64]*post.Post
	postCategories map[int64][]int64 // post id -> category ids in insertion order
	categories     map[int64]*category.Category
	subscribers    map[int64][]int64 // category id -> user ids in insertion order
	users          map[int64]*user.User
	groupPerms     map[string][]string
	memberships    map[int64][]string
	sessions       map[string]*user.Session
	tasks          []*task.Task
}

// NewStore returns an empty store seeded with the subscribers and authors groups.
func NewStore() *Store {
	return &Store{
		clock:          time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		posts:          make(map[int64]*post.Post),
		postCategories: make(map[int64][]int64),
		categories:     make(map[int64]*category.Category),
		subscribers:    make(map[int64][]int64),
		users:          make(map[int64]*user.User),
		groupPerms: map[string][]string{
			user.GroupSubscribers: nil,
			user.GroupAuthors:     {user.PermAddPost, user.PermChangePost, user.PermDeletePost},
		},
		memberships: make(map[int64][]string),
		sessions:    make(map[string]*user.Session),
	}
}

// tick advances the fake clock by one minute so creation times are strictly increasing.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Now returns the current fake time.
func (s *Store) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

func (s *Store) Posts() *PostRepo          { return &PostRepo{s: s} }
func (s *Store) Categories() *CategoryRepo { return &CategoryRepo{s: s} }
func (s *Store) Users() *UserRepo          { return &UserRepo{s: s} }
func (s *Store) Tasks() *TaskRepo          { return &TaskRepo{s: s} }

// AddUser inserts a user directly, bypassing validation.
func (s *Store) AddUser(username, email string) *user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user.User{ID: s.id(), Username: username, Email: email, CreatedAt: s.tick()}
	s.users[u.ID] = u
	cp := *u
	return &cp
}

// AddCategory inserts a category directly.
func (s *Store) AddCategory(name string) *category.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &category.Category{ID: s.id(), Name: name}
	s.categories[c.ID] = c
	cp := *c
	return &cp
}

// Subscribe adds a subscriber directly.
func (s *Store) Subscribe(categoryID, userID int64) {
	_ = s.Categories().AddSubscriber(context.Background(), categoryID, userID)
}

// Grant puts the user in a group directly.
func (s *Store) Grant(userID int64, group string) {
	_ = s.Users().AddToGroup(context.Background(), userID, group)
}

// SubscriberCount returns the size of a category's subscriber set.
func (s *Store) SubscriberCount(categoryID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[categoryID])
}

// PostCount returns the number of stored posts.
func (s *Store) PostCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// PostRepo implements post.Repository.
type PostRepo struct{ s *Store }

func (r *PostRepo) Create(_ context.Context, p *post.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	p.CreatedAt = r.s.tick()
	if u, ok := r.s.users[p.AuthorID]; ok {
		p.AuthorName = u.Username
	}
	cp := *p
	r.s.posts[p.ID] = &cp
	return nil
}

func (r *PostRepo) GetByID(_ context.Context, id int64) (*post.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, post.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PostRepo) Update(_ context.Context, p *post.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.posts[p.ID]
	if !ok {
		return post.ErrNotFound
	}
	stored.Title = p.Title
	stored.Text = p.Text
	stored.Kind = p.Kind
	return nil
}

func (r *PostRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return post.ErrNotFound
	}
	delete(r.s.posts, id)
	delete(r.s.postCategories, id)
	return nil
}

func (r *PostRepo) List(_ context.Context, f post.Filter, limit, offset int) ([]*post.Post, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*post.Post
	for _, p := range r.s.posts {
		if f.Title != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Title)) {
			continue
		}
		if f.Author != "" && !strings.Contains(strings.ToLower(p.AuthorName), strings.ToLower(f.Author)) {
			continue
		}
		if !f.After.IsZero() && !p.CreatedAt.After(f.After) {
			continue
		}
		if f.CategoryID != 0 && !containsID(r.s.postCategories[p.ID], f.CategoryID) {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []*post.Post{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *PostRepo) CategoryIDs(_ context.Context, postID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]int64(nil), r.s.postCategories[postID]...), nil
}

func (r *PostRepo) AddCategories(_ context.Context, postID int64, categoryIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range categoryIDs {
		if _, ok := r.s.categories[id]; !ok {
			return category.ErrNotFound
		}
		if !containsID(r.s.postCategories[postID], id) {
			r.s.postCategories[postID] = append(r.s.postCategories[postID], id)
		}
	}
	return nil
}

func (r *PostRepo) RemoveCategories(_ context.Context, postID int64, categoryIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.postCategories[postID][:0]
	for _, id := range r.s.postCategories[postID] {
		if !containsID(categoryIDs, id) {
			kept = append(kept, id)
		}
	}
	r.s.postCategories[postID] = kept
	return nil
}

// CategoryRepo implements category.Repository.
type CategoryRepo struct{ s *Store }

func (r *CategoryRepo) Create(_ context.Context, c *category.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.categories {
		if existing.Name == c.Name {
			return category.ErrDuplicateName
		}
	}
	c.ID = r.s.id()
	cp := *c
	r.s.categories[c.ID] = &cp
	return nil
}

func (r *CategoryRepo) GetByID(_ context.Context, id int64) (*category.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, category.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CategoryRepo) ListAll(_ context.Context) ([]*category.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*category.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepo) ListByPost(_ context.Context, postID int64) ([]*category.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := r.s.postCategories[postID]
	out := make([]*category.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *CategoryRepo) Subscribers(_ context.Context, categoryID int64) ([]*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := r.s.subscribers[categoryID]
	out := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *CategoryRepo) AddSubscriber(_ context.Context, categoryID, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[categoryID]; !ok {
		return category.ErrNotFound
	}
	if !containsID(r.s.subscribers[categoryID], userID) {
		r.s.subscribers[categoryID] = append(r.s.subscribers[categoryID], userID)
	}
	return nil
}

func (r *CategoryRepo) IsSubscriber(_ context.Context, categoryID, userID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return containsID(r.s.subscribers[categoryID], userID), nil
}

// UserRepo implements user.Repository and user.SessionRepository.
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return user.ErrDuplicate
		}
	}
	u.ID = r.s.id()
	u.CreatedAt = r.s.tick()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *UserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) InGroup(_ context.Context, userID int64, group string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return containsString(r.s.memberships[userID], group), nil
}

func (r *UserRepo) AddToGroup(_ context.Context, userID int64, group string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.groupPerms[group]; !ok {
		return user.ErrGroupNotFound
	}
	if !containsString(r.s.memberships[userID], group) {
		r.s.memberships[userID] = append(r.s.memberships[userID], group)
	}
	return nil
}

// GroupSize returns the number of members of a group.
func (r *UserRepo) GroupSize(group string) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, groups := range r.s.memberships {
		if containsString(groups, group) {
			n++
		}
	}
	return n
}

func (r *UserRepo) Permissions(_ context.Context, userID int64) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var perms []string
	for _, g := range r.s.memberships[userID] {
		for _, p := range r.s.groupPerms[g] {
			if !containsString(perms, p) {
				perms = append(perms, p)
			}
		}
	}
	return perms, nil
}

func (r *UserRepo) CreateSession(_ context.Context, sess *user.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r *UserRepo) GetSession(_ context.Context, id string) (*user.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, user.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (r *UserRepo) DeleteSession(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[id]; !ok {
		return user.ErrSessionNotFound
	}
	delete(r.s.sessions, id)
	return nil
}

func (r *UserRepo) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, sess := range r.s.sessions {
		if sess.Expired(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

// TaskRepo implements task.Repository.
type TaskRepo struct{ s *Store }

func (r *TaskRepo) Insert(_ context.Context, t *task.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.Status = task.StatusPending
	t.CreatedAt = r.s.tick()
	cp := *t
	r.s.tasks = append(r.s.tasks, &cp)
	return nil
}

func (r *TaskRepo) ClaimNext(_ context.Context) (*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tasks {
		if t.Status == task.StatusPending {
			now := r.s.tick()
			t.Status = task.StatusRunning
			t.Attempts++
			t.StartedAt = &now
			cp := *t
			return &cp, nil
		}
	}
	return nil, task.ErrNoTask
}

func (r *TaskRepo) finish(id int64, status task.Status, reason string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tasks {
		if t.ID == id {
			now := r.s.tick()
			t.Status = status
			t.LastError = reason
			t.FinishedAt = &now
		}
	}
}

// MarkDone and MarkFailed refuse a cancelled context the way database/sql does.
func (r *TaskRepo) MarkDone(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.finish(id, task.StatusDone, "")
	return nil
}

func (r *TaskRepo) MarkFailed(ctx context.Context, id int64, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.finish(id, task.StatusFailed, reason)
	return nil
}

func (r *TaskRepo) ListRecent(_ context.Context, limit int) ([]*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*task.Task, 0, limit)
	for i := len(r.s.tasks) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.s.tasks[i]
		out = append(out, &cp)
	}
	return out, nil
}
