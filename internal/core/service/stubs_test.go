package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory KV store with injectable failures
// ---------------------------------------------------------------------------

type memKV struct {
	mu        sync.Mutex
	data      map[string]string
	setErr    error
	getErr    error
	removeErr error
	// onGet runs before each read, outside the lock.
	onGet func(key string)
}

func newMemKV() *memKV { return &memKV{data: make(map[string]string)} }

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	if m.onGet != nil {
		m.onGet(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	return m.MultiRemove(context.Background(), key)
}

func (m *memKV) MultiRemove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *memKV) value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// ---------------------------------------------------------------------------
// Auth API stub
// ---------------------------------------------------------------------------

type stubAuthAPI struct {
	mu         sync.Mutex
	users      map[string]string // email -> password
	roles      map[string]domain.Role
	loginCalls int
	logoutErr  error
	refreshErr error
	profileErr error
	gate       chan struct{} // when set, Login blocks until it is closed
	// holdRefresh and holdProfile block Refresh and UpdateProfile until
	// closed; entered is signalled once the call is blocked.
	holdRefresh chan struct{}
	holdProfile chan struct{}
	entered     chan struct{}
}

func newStubAuthAPI() *stubAuthAPI {
	return &stubAuthAPI{
		users: map[string]string{"alice@example.com": "password123"},
		roles: map[string]domain.Role{},
	}
}

func (a *stubAuthAPI) Login(_ context.Context, in ports.LoginInput) (*domain.AuthPayload, error) {
	a.mu.Lock()
	a.loginCalls++
	gate := a.gate
	pw, ok := a.users[in.Email]
	role := a.roles[in.Email]
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok || pw != in.Password {
		return nil, &domain.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return &domain.AuthPayload{
		Token:        "tok-" + in.Email,
		RefreshToken: "ref-" + in.Email,
		User:         &domain.User{ID: "u-" + in.Email, Email: in.Email, Username: "alice", Role: role},
	}, nil
}

func (a *stubAuthAPI) Register(_ context.Context, in ports.RegisterInput) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[in.Email]; ok {
		return "", &domain.APIError{Status: http.StatusConflict, Message: "Email already registered"}
	}
	a.users[in.Email] = in.Password
	return "Registration successful. Please check your email.", nil
}

func (a *stubAuthAPI) Logout(context.Context, string) error { return a.logoutErr }

// hold blocks on ch when it is set, signalling entered first.
func (a *stubAuthAPI) hold(ch chan struct{}) {
	if ch == nil {
		return
	}
	if a.entered != nil {
		a.entered <- struct{}{}
	}
	<-ch
}

func (a *stubAuthAPI) Refresh(_ context.Context, refreshToken string) (*domain.AuthPayload, error) {
	a.hold(a.holdRefresh)
	if a.refreshErr != nil {
		return nil, a.refreshErr
	}
	return &domain.AuthPayload{Token: "fresh-" + refreshToken}, nil
}

func (a *stubAuthAPI) UpdateProfile(_ context.Context, _ string, in ports.ProfileUpdate) (*domain.User, error) {
	a.hold(a.holdProfile)
	if a.profileErr != nil {
		return nil, a.profileErr
	}
	u := &domain.User{}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	return u, nil
}

func (a *stubAuthAPI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loginCalls
}

// ---------------------------------------------------------------------------
// Content API stub
// ---------------------------------------------------------------------------

type stubContentAPI struct {
	mu        sync.Mutex
	journals  []domain.Journal
	goals     []domain.Goal
	posts     []domain.Post
	failList  map[string]error // collection name -> error
	statsCall int
	nextID    int
	deleteErr error
	gate      chan struct{} // when set, ListJournals blocks until it is closed
	listCalls int
	// holdCreate blocks CreateJournal until closed, signalling entered first.
	holdCreate chan struct{}
	entered    chan struct{}
}

func newStubContentAPI() *stubContentAPI {
	return &stubContentAPI{
		journals: []domain.Journal{{ID: "j1", Title: "First"}, {ID: "j2", Title: "Second"}},
		goals:    []domain.Goal{{ID: "g1", Title: "Run", Progress: 10}},
		posts:    []domain.Post{{ID: "p1", Title: "Hello", Likes: 2}},
		failList: map[string]error{},
	}
}

func (c *stubContentAPI) fail(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failList[name]
}

func (c *stubContentAPI) id(prefix string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return fmt.Sprintf("%s%d", prefix, 100+c.nextID)
}

func (c *stubContentAPI) ListJournals(context.Context, string) ([]domain.Journal, error) {
	c.mu.Lock()
	gate := c.gate
	c.listCalls++
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err := c.fail("journals"); err != nil {
		return nil, err
	}
	return append([]domain.Journal{}, c.journals...), nil
}

func (c *stubContentAPI) CreateJournal(_ context.Context, _ string, in ports.JournalInput) (*domain.Journal, error) {
	if c.holdCreate != nil {
		c.entered <- struct{}{}
		<-c.holdCreate
	}
	return &domain.Journal{ID: c.id("j"), Title: in.Title, Content: in.Content}, nil
}

func (c *stubContentAPI) UpdateJournal(_ context.Context, _, id string, in ports.JournalInput) (*domain.Journal, error) {
	return &domain.Journal{ID: id, Title: in.Title, Content: in.Content}, nil
}

func (c *stubContentAPI) DeleteJournal(context.Context, string, string) error { return c.deleteErr }

func (c *stubContentAPI) ListGoals(context.Context, string) ([]domain.Goal, error) {
	if err := c.fail("goals"); err != nil {
		return nil, err
	}
	return append([]domain.Goal{}, c.goals...), nil
}

func (c *stubContentAPI) CreateGoal(_ context.Context, _ string, in ports.GoalInput) (*domain.Goal, error) {
	return &domain.Goal{ID: c.id("g"), Title: in.Title, Progress: in.Progress}, nil
}

func (c *stubContentAPI) UpdateGoal(_ context.Context, _, id string, in ports.GoalInput) (*domain.Goal, error) {
	return &domain.Goal{ID: id, Title: in.Title, Progress: in.Progress, Completed: in.Completed}, nil
}

func (c *stubContentAPI) DeleteGoal(context.Context, string, string) error { return c.deleteErr }

func (c *stubContentAPI) ListPosts(context.Context, string) ([]domain.Post, error) {
	if err := c.fail("posts"); err != nil {
		return nil, err
	}
	return append([]domain.Post{}, c.posts...), nil
}

func (c *stubContentAPI) CreatePost(_ context.Context, _ string, in ports.PostInput) (*domain.Post, error) {
	return &domain.Post{ID: c.id("p"), Title: in.Title, Content: in.Content}, nil
}

func (c *stubContentAPI) UpdatePost(_ context.Context, _, id string, in ports.PostInput) (*domain.Post, error) {
	return &domain.Post{ID: id, Title: in.Title, Content: in.Content}, nil
}

func (c *stubContentAPI) DeletePost(context.Context, string, string) error { return c.deleteErr }

func (c *stubContentAPI) LikePost(_ context.Context, _, id string) (*domain.Post, error) {
	return &domain.Post{ID: id, Title: "Hello", Likes: 3, LikedBy: []string{"u-alice@example.com"}}, nil
}

func (c *stubContentAPI) AddComment(_ context.Context, _, id string, in ports.CommentInput) (*domain.Post, error) {
	return &domain.Post{ID: id, Title: "Hello", Likes: 2, Comments: []domain.Comment{{ID: "c1", Content: in.Content}}}, nil
}

func (c *stubContentAPI) ListAchievements(context.Context, string) ([]domain.Achievement, error) {
	if err := c.fail("achievements"); err != nil {
		return nil, err
	}
	return []domain.Achievement{{ID: "a1", Name: "First entry"}}, nil
}

func (c *stubContentAPI) GetStatistics(context.Context, string) (*domain.Statistics, error) {
	c.mu.Lock()
	c.statsCall++
	n := c.statsCall
	c.mu.Unlock()
	if err := c.fail("statistics"); err != nil {
		return nil, err
	}
	return &domain.Statistics{TotalJournals: n}, nil
}

func (c *stubContentAPI) journalListCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listCalls
}

func (c *stubContentAPI) statsCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsCall
}

// ---------------------------------------------------------------------------
// Email API stub
// ---------------------------------------------------------------------------

type stubEmailAPI struct {
	mu        sync.Mutex
	sends     map[string]int
	sendErr   error
	verifyErr error
}

func newStubEmailAPI() *stubEmailAPI { return &stubEmailAPI{sends: map[string]int{}} }

func (e *stubEmailAPI) record(kind string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sendErr != nil {
		return e.sendErr
	}
	e.sends[kind]++
	return nil
}

func (e *stubEmailAPI) SendVerificationEmail(context.Context, string) error {
	return e.record("verification")
}

func (e *stubEmailAPI) SendPasswordResetEmail(context.Context, string) error {
	return e.record("reset")
}

func (e *stubEmailAPI) VerifyEmail(_ context.Context, token string) error {
	if e.verifyErr != nil {
		return e.verifyErr
	}
	if token != "good" {
		return &domain.APIError{Status: http.StatusBadRequest, Message: "Invalid or expired token"}
	}
	return nil
}

func (e *stubEmailAPI) ResetPassword(_ context.Context, token, _ string) error {
	if token != "good" {
		return &domain.APIError{Status: http.StatusBadRequest, Message: "Invalid or expired token"}
	}
	return nil
}

func (e *stubEmailAPI) count(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sends[kind]
}

// ---------------------------------------------------------------------------
// Admin API stub
// ---------------------------------------------------------------------------

type stubAdminAPI struct {
	calls int
}

func (a *stubAdminAPI) ListUsers(context.Context, string) ([]domain.User, error) {
	a.calls++
	return []domain.User{{ID: "u1", Email: "bob@example.com"}}, nil
}

func (a *stubAdminAPI) CreateUser(_ context.Context, _ string, in ports.AdminUserInput) (*domain.User, error) {
	a.calls++
	return &domain.User{ID: "u2", Email: in.Email, Username: in.Username, Role: domain.NormalizeRole(in.Role)}, nil
}

func (a *stubAdminAPI) UpdateUser(_ context.Context, _, id string, in ports.AdminUserInput) (*domain.User, error) {
	a.calls++
	return &domain.User{ID: id, Email: in.Email, Role: domain.NormalizeRole(in.Role)}, nil
}

func (a *stubAdminAPI) DisableUser(_ context.Context, _, id string) (*domain.User, error) {
	a.calls++
	return &domain.User{ID: id, Disabled: true}, nil
}

func (a *stubAdminAPI) DeleteUser(context.Context, string, string) error {
	a.calls++
	return nil
}

// ---------------------------------------------------------------------------
// Task runner and ticker fakes
// ---------------------------------------------------------------------------

// syncTasks runs tasks inline and records their errors.
type syncTasks struct {
	mu   sync.Mutex
	errs []error
	ran  int
}

func (r *syncTasks) Go(_ string, task func(ctx context.Context) error) {
	err := task(context.Background())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran++
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

// fakeTickers hands out manually driven tickers in creation order.
type fakeTickers struct {
	mu      sync.Mutex
	chans   []chan time.Time
	stopped int
}

func (f *fakeTickers) New(time.Duration) (<-chan time.Time, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time)
	f.chans = append(f.chans, ch)
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped++
	}
}

func (f *fakeTickers) get(t *testing.T, i int) chan time.Time {
	t.Helper()
	var ch chan time.Time
	waitFor(t, "ticker to be created", func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.chans) > i {
			ch = f.chans[i]
			return true
		}
		return false
	})
	return ch
}

func (f *fakeTickers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chans)
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

var errBoom = errors.New("boom")
