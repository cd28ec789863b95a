package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// API implements the typed backend ports on top of a Requester.
type API struct {
	r ports.Requester
}

func NewAPI(r ports.Requester) *API { return &API{r: r} }

var (
	_ ports.AuthAPI    = (*API)(nil)
	_ ports.ContentAPI = (*API)(nil)
	_ ports.EmailAPI   = (*API)(nil)
	_ ports.AdminAPI   = (*API)(nil)
)

// call performs the request and decodes data into T.
func call[T any](ctx context.Context, r ports.Requester, endpoint string, opts ports.RequestOptions) (T, error) {
	var out T
	env := r.Request(ctx, endpoint, opts)
	if !env.Success {
		return out, &domain.APIError{Status: env.Status, Message: env.Message}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, &domain.APIError{Status: env.Status, Message: "Unexpected response from server"}
	}
	return out, nil
}

// exec performs a request whose data is ignored and returns its message.
func exec(ctx context.Context, r ports.Requester, endpoint string, opts ports.RequestOptions) (string, error) {
	env := r.Request(ctx, endpoint, opts)
	if !env.Success {
		return "", &domain.APIError{Status: env.Status, Message: env.Message}
	}
	return env.Message, nil
}

func path(prefix, id string, suffix ...string) string {
	p := prefix + "/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// --- Auth ---

func (a *API) Login(ctx context.Context, in ports.LoginInput) (*domain.AuthPayload, error) {
	return call[*domain.AuthPayload](ctx, a.r, "/auth/login", ports.RequestOptions{Method: http.MethodPost, Body: in})
}

func (a *API) Register(ctx context.Context, in ports.RegisterInput) (string, error) {
	return exec(ctx, a.r, "/auth/register", ports.RequestOptions{Method: http.MethodPost, Body: in})
}

func (a *API) Logout(ctx context.Context, token string) error {
	_, err := exec(ctx, a.r, "/auth/logout", ports.RequestOptions{Method: http.MethodPost, Token: token})
	return err
}

func (a *API) Refresh(ctx context.Context, refreshToken string) (*domain.AuthPayload, error) {
	body := map[string]string{"refreshToken": refreshToken}
	return call[*domain.AuthPayload](ctx, a.r, "/auth/refresh", ports.RequestOptions{Method: http.MethodPost, Body: body})
}

func (a *API) UpdateProfile(ctx context.Context, token string, in ports.ProfileUpdate) (*domain.User, error) {
	return call[*domain.User](ctx, a.r, "/auth/profile", ports.RequestOptions{Method: http.MethodPut, Token: token, Body: in})
}

// --- Email ---

func (a *API) SendVerificationEmail(ctx context.Context, email string) error {
	_, err := exec(ctx, a.r, "/auth/resend-verification", ports.RequestOptions{
		Method: http.MethodPost, Body: map[string]string{"email": email},
	})
	return err
}

func (a *API) SendPasswordResetEmail(ctx context.Context, email string) error {
	_, err := exec(ctx, a.r, "/auth/forgot-password", ports.RequestOptions{
		Method: http.MethodPost, Body: map[string]string{"email": email},
	})
	return err
}

func (a *API) VerifyEmail(ctx context.Context, token string) error {
	_, err := exec(ctx, a.r, "/auth/verify-email", ports.RequestOptions{
		Method: http.MethodPost, Body: map[string]string{"token": token},
	})
	return err
}

func (a *API) ResetPassword(ctx context.Context, token, newPassword string) error {
	_, err := exec(ctx, a.r, "/auth/reset-password", ports.RequestOptions{
		Method: http.MethodPost, Body: map[string]string{"token": token, "password": newPassword},
	})
	return err
}

// --- Journals ---

func (a *API) ListJournals(ctx context.Context, token string) ([]domain.Journal, error) {
	return call[[]domain.Journal](ctx, a.r, "/journals", ports.RequestOptions{Token: token})
}

func (a *API) CreateJournal(ctx context.Context, token string, in ports.JournalInput) (*domain.Journal, error) {
	return call[*domain.Journal](ctx, a.r, "/journals", ports.RequestOptions{Method: http.MethodPost, Token: token, Body: in})
}

func (a *API) UpdateJournal(ctx context.Context, token, id string, in ports.JournalInput) (*domain.Journal, error) {
	return call[*domain.Journal](ctx, a.r, path("/journals", id), ports.RequestOptions{Method: http.MethodPut, Token: token, Body: in})
}

func (a *API) DeleteJournal(ctx context.Context, token, id string) error {
	_, err := exec(ctx, a.r, path("/journals", id), ports.RequestOptions{Method: http.MethodDelete, Token: token})
	return err
}

// --- Goals ---

func (a *API) ListGoals(ctx context.Context, token string) ([]domain.Goal, error) {
	return call[[]domain.Goal](ctx, a.r, "/goals", ports.RequestOptions{Token: token})
}

func (a *API) CreateGoal(ctx context.Context, token string, in ports.GoalInput) (*domain.Goal, error) {
	return call[*domain.Goal](ctx, a.r, "/goals", ports.RequestOptions{Method: http.MethodPost, Token: token, Body: in})
}

func (a *API) UpdateGoal(ctx context.Context, token, id string, in ports.GoalInput) (*domain.Goal, error) {
	return call[*domain.Goal](ctx, a.r, path("/goals", id), ports.RequestOptions{Method: http.MethodPut, Token: token, Body: in})
}

func (a *API) DeleteGoal(ctx context.Context, token, id string) error {
	_, err := exec(ctx, a.r, path("/goals", id), ports.RequestOptions{Method: http.MethodDelete, Token: token})
	return err
}

// --- Posts ---

func (a *API) ListPosts(ctx context.Context, token string) ([]domain.Post, error) {
	return call[[]domain.Post](ctx, a.r, "/posts", ports.RequestOptions{Token: token})
}

func (a *API) CreatePost(ctx context.Context, token string, in ports.PostInput) (*domain.Post, error) {
	return call[*domain.Post](ctx, a.r, "/posts", ports.RequestOptions{Method: http.MethodPost, Token: token, Body: in})
}

func (a *API) UpdatePost(ctx context.Context, token, id string, in ports.PostInput) (*domain.Post, error) {
	return call[*domain.Post](ctx, a.r, path("/posts", id), ports.RequestOptions{Method: http.MethodPut, Token: token, Body: in})
}

func (a *API) DeletePost(ctx context.Context, token, id string) error {
	_, err := exec(ctx, a.r, path("/posts", id), ports.RequestOptions{Method: http.MethodDelete, Token: token})
	return err
}

func (a *API) LikePost(ctx context.Context, token, id string) (*domain.Post, error) {
	return call[*domain.Post](ctx, a.r, path("/posts", id, "like"), ports.RequestOptions{Method: http.MethodPost, Token: token})
}

func (a *API) AddComment(ctx context.Context, token, id string, in ports.CommentInput) (*domain.Post, error) {
	return call[*domain.Post](ctx, a.r, path("/posts", id, "comments"), ports.RequestOptions{Method: http.MethodPost, Token: token, Body: in})
}

// --- Progress ---

func (a *API) ListAchievements(ctx context.Context, token string) ([]domain.Achievement, error) {
	return call[[]domain.Achievement](ctx, a.r, "/achievements", ports.RequestOptions{Token: token})
}

func (a *API) GetStatistics(ctx context.Context, token string) (*domain.Statistics, error) {
	return call[*domain.Statistics](ctx, a.r, "/statistics", ports.RequestOptions{Token: token})
}

// --- Admin ---

func (a *API) ListUsers(ctx context.Context, token string) ([]domain.User, error) {
	return call[[]domain.User](ctx, a.r, "/admin/users", ports.RequestOptions{Token: token})
}

func (a *API) CreateUser(ctx context.Context, token string, in ports.AdminUserInput) (*domain.User, error) {
	return call[*domain.User](ctx, a.r, "/admin/users", ports.RequestOptions{Method: http.MethodPost, Token: token, Body: in})
}

func (a *API) UpdateUser(ctx context.Context, token, id string, in ports.AdminUserInput) (*domain.User, error) {
	return call[*domain.User](ctx, a.r, path("/admin/users", id), ports.RequestOptions{Method: http.MethodPut, Token: token, Body: in})
}

func (a *API) DisableUser(ctx context.Context, token, id string) (*domain.User, error) {
	return call[*domain.User](ctx, a.r, path("/admin/users", id, "disable"), ports.RequestOptions{Method: http.MethodPost, Token: token})
}

func (a *API) DeleteUser(ctx context.Context, token, id string) error {
	_, err := exec(ctx, a.r, path("/admin/users", id), ports.RequestOptions{Method: http.MethodDelete, Token: token})
	return err
}
