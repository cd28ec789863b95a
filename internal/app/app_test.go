package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/devserver"
	"github.com/innerpath/client-core/internal/infrastructure/config"
)

type harness struct {
	app    *App
	router *echo.Echo
	token  string
	dev    *devserver.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dev, err := devserver.New(devserver.Options{
		JWTSecret:  "backend-secret",
		BcryptCost: bcrypt.MinCost,
		Log:        zerolog.Nop(),
		Seed: []devserver.SeedUser{
			{Email: "alice@example.com", Password: "password123", Username: "alice"},
			{Email: "root@example.com", Password: "password123", Username: "root", Role: domain.RoleSuperAdmin},
		},
	})
	if err != nil {
		t.Fatalf("devserver: %v", err)
	}
	backend := httptest.NewServer(dev.Handler())
	t.Cleanup(backend.Close)

	cfg, err := config.LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"STORE_BACKEND":  config.BackendMemory,
		"API_BASE_URL":   backend.URL + "/api",
		"API_RATE_LIMIT": "0",
		"CONTROL_SECRET": "control-secret",
	}))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	a, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	a.Start(context.Background())
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	token, err := a.OperatorToken("test", time.Hour)
	if err != nil {
		t.Fatalf("operator token: %v", err)
	}
	return &harness{app: a, router: a.Router(), token: token, dev: dev}
}

func (h *harness) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+h.token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: invalid json %q", method, path, rec.Body.String())
		}
	}
	return rec.Code, resp
}

func (h *harness) waitLoaded(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := h.app.Data.State(); st.Statistics != nil && !st.IsLoading {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("initial data load did not settle")
}

func TestControlAPI_RequiresOperatorToken(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health must be public, got %d", rec.Code)
	}
}

func TestControlAPI_SessionAndData(t *testing.T) {
	h := newHarness(t)

	code, resp := h.do(t, http.MethodPost, "/v1/session/login", `{"email":"alice@example.com","password":"wrong-password"}`)
	if code != http.StatusUnauthorized || resp["error"] != "invalid credentials" {
		t.Fatalf("expected backend rejection, got %d %+v", code, resp)
	}

	code, _ = h.do(t, http.MethodPost, "/v1/session/login", `{"email":"alice@example.com","password":"password123"}`)
	if code != http.StatusOK || !h.app.Auth.State().IsAuthenticated {
		t.Fatalf("login failed: %d", code)
	}
	h.waitLoaded(t)

	code, resp = h.do(t, http.MethodPost, "/v1/journals", `{"title":"First","content":"hello","mood":"happy"}`)
	if code != http.StatusCreated {
		t.Fatalf("create journal: %d %+v", code, resp)
	}
	if got := len(h.app.Data.State().Journals); got != 1 {
		t.Fatalf("expected 1 journal, got %d", got)
	}

	code, resp = h.do(t, http.MethodPost, "/v1/goals", `{"title":"Run","progress":150}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected validation failure, got %d %+v", code, resp)
	}

	code, resp = h.do(t, http.MethodGet, "/v1/access", "")
	data, _ := resp["data"].(map[string]any)
	if code != http.StatusOK || data["role"] != string(domain.RoleUser) {
		t.Fatalf("unexpected access: %d %+v", code, resp)
	}

	code, resp = h.do(t, http.MethodGet, "/v1/admin/users", "")
	if code != http.StatusForbidden {
		t.Fatalf("USER must not reach admin routes, got %d %+v", code, resp)
	}

	code, _ = h.do(t, http.MethodPost, "/v1/session/logout", "")
	if code != http.StatusOK || !h.app.Data.State().IsEmpty() {
		t.Fatalf("logout must clear the dataset")
	}
	code, _ = h.do(t, http.MethodGet, "/v1/admin/users", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("signed-out admin call must be 401, got %d", code)
	}
}

func TestControlAPI_AdminAndEmail(t *testing.T) {
	h := newHarness(t)

	if code, _ := h.do(t, http.MethodPost, "/v1/session/login", `{"email":"root@example.com","password":"password123"}`); code != http.StatusOK {
		t.Fatalf("login failed: %d", code)
	}
	code, resp := h.do(t, http.MethodGet, "/v1/admin/users", "")
	users, _ := resp["data"].([]any)
	if code != http.StatusOK || len(users) != 2 {
		t.Fatalf("admin list: %d %+v", code, resp)
	}

	code, resp = h.do(t, http.MethodPost, "/v1/email/password-reset", `{"email":"alice@example.com"}`)
	if code != http.StatusOK {
		t.Fatalf("send reset: %d %+v", code, resp)
	}
	code, resp = h.do(t, http.MethodPost, "/v1/email/password-reset", `{"email":"alice@example.com"}`)
	if code != http.StatusTooManyRequests {
		t.Fatalf("expected cooldown rejection, got %d %+v", code, resp)
	}

	body := `{"token":"` + h.dev.ResetToken("alice@example.com") + `","newPassword":"brand-new-pass"}`
	if code, resp = h.do(t, http.MethodPost, "/v1/email/reset-password", body); code != http.StatusOK {
		t.Fatalf("reset password: %d %+v", code, resp)
	}
	if !h.app.Email.State().PasswordReset.Completed {
		t.Fatalf("expected password reset completed")
	}
}

func TestControlAPI_Preferences(t *testing.T) {
	h := newHarness(t)

	code, resp := h.do(t, http.MethodPatch, "/v1/preferences", `{"isDarkMode":true,"hasSeenOnboarding":true,"screenDimensions":{"width":820,"height":1180},"activeTab":"goals"}`)
	if code != http.StatusOK {
		t.Fatalf("patch: %d %+v", code, resp)
	}
	p := h.app.Preferences.State()
	if !p.IsDarkMode || !p.HasSeenOnboarding || !p.IsTablet || p.ActiveTab != "goals" || p.IsFirstLaunch {
		t.Fatalf("unexpected preferences: %+v", p)
	}
}
