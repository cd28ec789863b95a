package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
	"github.com/innerpath/client-core/internal/infrastructure/apiclient"
)

func newTestAPI(t *testing.T, seed ...SeedUser) (*apiclient.API, *Server) {
	t.Helper()
	srv, err := New(Options{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost, Seed: seed, Log: zerolog.Nop()})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	client := apiclient.New(apiclient.Config{BaseURL: hs.URL + "/api", Timeout: 5 * time.Second}, zerolog.Nop())
	return apiclient.NewAPI(client), srv
}

func mustLogin(t *testing.T, api *apiclient.API, email, password string) *domain.AuthPayload {
	t.Helper()
	p, err := api.Login(context.Background(), ports.LoginInput{Email: email, Password: password})
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return p
}

func TestAuthLifecycle(t *testing.T) {
	api, srv := newTestAPI(t)
	ctx := context.Background()

	msg, err := api.Register(ctx, ports.RegisterInput{
		Email: "Alice@Example.com", Password: "password123", Username: "alice", FirstName: "Alice", LastName: "L",
	})
	if err != nil || msg == "" {
		t.Fatalf("register: %q %v", msg, err)
	}
	if _, err := api.Register(ctx, ports.RegisterInput{
		Email: "alice@example.com", Password: "password123", Username: "alice2", FirstName: "A", LastName: "L",
	}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := api.Login(ctx, ports.LoginInput{Email: "alice@example.com", Password: "wrong-password"}); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected 401, got %v", err)
	}

	token := srv.VerificationToken("alice@example.com")
	if token == "" {
		t.Fatalf("registration must mail a verification token")
	}
	if err := api.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := api.VerifyEmail(ctx, token); err == nil {
		t.Fatalf("verification tokens are single use")
	}

	p := mustLogin(t, api, "alice@example.com", "password123")
	if p.User == nil || !p.User.EmailVerified || p.User.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", p.User)
	}

	name := "Alicia"
	u, err := api.UpdateProfile(ctx, p.Token, ports.ProfileUpdate{FirstName: &name})
	if err != nil || u.FirstName != "Alicia" || u.LastName != "L" {
		t.Fatalf("profile update: %+v %v", u, err)
	}

	next, err := api.Refresh(ctx, p.RefreshToken)
	if err != nil || next.Token == "" || next.RefreshToken == p.RefreshToken {
		t.Fatalf("refresh: %+v %v", next, err)
	}
	if _, err := api.Refresh(ctx, p.RefreshToken); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("consumed refresh token must be rejected, got %v", err)
	}

	if err := api.Logout(ctx, next.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := api.ListJournals(ctx, next.Token); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("revoked token must be rejected, got %v", err)
	}
	if _, err := api.Refresh(ctx, next.RefreshToken); err == nil {
		t.Fatalf("logout must revoke refresh tokens")
	}
}

func TestPasswordReset(t *testing.T) {
	api, srv := newTestAPI(t, SeedUser{Email: "bob@example.com", Password: "old-password", Username: "bob"})
	ctx := context.Background()

	if err := api.SendPasswordResetEmail(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown emails must not be revealed: %v", err)
	}
	if err := api.SendPasswordResetEmail(ctx, "bob@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	if err := api.ResetPassword(ctx, "bogus", "new-password"); err == nil {
		t.Fatalf("bogus token must fail")
	}
	if err := api.ResetPassword(ctx, srv.ResetToken("bob@example.com"), "new-password"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	mustLogin(t, api, "bob@example.com", "new-password")
}

func TestContent(t *testing.T) {
	api, _ := newTestAPI(t,
		SeedUser{Email: "alice@example.com", Password: "password123", Username: "alice"},
		SeedUser{Email: "bob@example.com", Password: "password123", Username: "bob"},
	)
	ctx := context.Background()
	alice := mustLogin(t, api, "alice@example.com", "password123").Token
	bob := mustLogin(t, api, "bob@example.com", "password123").Token

	j1, err := api.CreateJournal(ctx, alice, ports.JournalInput{Title: "Day one", Content: "hello", Mood: "happy"})
	if err != nil {
		t.Fatalf("create journal: %v", err)
	}
	j2, _ := api.CreateJournal(ctx, alice, ports.JournalInput{Title: "Day two", Content: "again", Mood: "calm"})

	list, _ := api.ListJournals(ctx, alice)
	if len(list) != 2 || list[0].ID != j2.ID {
		t.Fatalf("expected newest first: %+v", list)
	}
	if other, _ := api.ListJournals(ctx, bob); len(other) != 0 {
		t.Fatalf("journals are private, bob sees %d", len(other))
	}
	if _, err := api.UpdateJournal(ctx, bob, j1.ID, ports.JournalInput{Title: "x", Content: "y"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected 404 for foreign journal, got %v", err)
	}

	g, _ := api.CreateGoal(ctx, alice, ports.GoalInput{Title: "Run", Progress: 40})
	if g, err = api.UpdateGoal(ctx, alice, g.ID, ports.GoalInput{Title: "Run", Progress: 100}); err != nil || !g.Completed {
		t.Fatalf("full progress completes the goal: %+v %v", g, err)
	}

	st, err := api.GetStatistics(ctx, alice)
	if err != nil || st.TotalJournals != 2 || st.CompletedGoals != 1 || st.MoodDistribution["happy"] != 1 || st.CurrentStreak != 1 {
		t.Fatalf("unexpected statistics: %+v %v", st, err)
	}
	achievements, _ := api.ListAchievements(ctx, alice)
	unlocked := 0
	for _, a := range achievements {
		if a.UnlockedAt != nil {
			unlocked++
		}
	}
	if unlocked != 3 {
		t.Fatalf("expected first-entry, first-goal and goal-done, got %d unlocked", unlocked)
	}

	if err := api.DeleteJournal(ctx, alice, j1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := api.DeleteJournal(ctx, alice, j1.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete must 404, got %v", err)
	}

	post, _ := api.CreatePost(ctx, alice, ports.PostInput{Title: "Hi", Content: "all"})
	liked, err := api.LikePost(ctx, bob, post.ID)
	if err != nil || liked.Likes != 1 {
		t.Fatalf("like: %+v %v", liked, err)
	}
	if unliked, _ := api.LikePost(ctx, bob, post.ID); unliked.Likes != 0 {
		t.Fatalf("second like toggles off, got %d", unliked.Likes)
	}
	commented, err := api.AddComment(ctx, bob, post.ID, ports.CommentInput{Content: "welcome"})
	if err != nil || len(commented.Comments) != 1 {
		t.Fatalf("comment: %+v %v", commented, err)
	}
	if _, err := api.UpdatePost(ctx, bob, post.ID, ports.PostInput{Title: "Mine", Content: "now"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-authors cannot edit, got %v", err)
	}
	if err := api.DeletePost(ctx, alice, post.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
}

func TestAdminUsers(t *testing.T) {
	api, _ := newTestAPI(t,
		SeedUser{Email: "root@example.com", Password: "password123", Username: "root", Role: domain.RoleSuperAdmin},
		SeedUser{Email: "admin@example.com", Password: "password123", Username: "admin", Role: domain.RoleAdmin},
		SeedUser{Email: "user@example.com", Password: "password123", Username: "user"},
	)
	ctx := context.Background()
	root := mustLogin(t, api, "root@example.com", "password123").Token
	admin := mustLogin(t, api, "admin@example.com", "password123").Token
	user := mustLogin(t, api, "user@example.com", "password123").Token

	if _, err := api.ListUsers(ctx, user); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("USER must be forbidden, got %v", err)
	}
	users, err := api.ListUsers(ctx, admin)
	if err != nil || len(users) != 3 {
		t.Fatalf("admin list: %d %v", len(users), err)
	}

	carol, err := api.CreateUser(ctx, admin, ports.AdminUserInput{Email: "carol@example.com", Username: "carol", Password: "password123"})
	if err != nil || carol.Role != domain.RoleUser {
		t.Fatalf("admin create user: %+v %v", carol, err)
	}
	if _, err := api.CreateUser(ctx, admin, ports.AdminUserInput{Email: "dan@example.com", Username: "dan", Role: domain.RoleAdmin}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ADMIN must not create admins, got %v", err)
	}
	promoted, err := api.UpdateUser(ctx, root, carol.ID, ports.AdminUserInput{Email: "carol@example.com", Username: "carol", Role: domain.RoleAdmin})
	if err != nil || promoted.Role != domain.RoleAdmin {
		t.Fatalf("super admin promote: %+v %v", promoted, err)
	}
	if _, err := api.DisableUser(ctx, admin, carol.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ADMIN must not disable admins, got %v", err)
	}

	disabled, err := api.DisableUser(ctx, root, carol.ID)
	if err != nil || !disabled.Disabled {
		t.Fatalf("disable: %+v %v", disabled, err)
	}
	if _, err := api.Login(ctx, ports.LoginInput{Email: "carol@example.com", Password: "password123"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("disabled accounts cannot log in, got %v", err)
	}
	if err := api.DeleteUser(ctx, root, carol.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := api.DeleteUser(ctx, root, carol.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestEnvelopeOnUnknownRoute(t *testing.T) {
	srv, _ := New(Options{JWTSecret: "s", BcryptCost: bcrypt.MinCost, Log: zerolog.Nop()})
	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
