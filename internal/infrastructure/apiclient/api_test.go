package apiclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// fakeRequester returns canned envelopes and records endpoints.
type fakeRequester struct {
	env   ports.Envelope
	calls []string
}

func (f *fakeRequester) Request(_ context.Context, endpoint string, opts ports.RequestOptions) ports.Envelope {
	f.calls = append(f.calls, opts.Method+" "+endpoint)
	return f.env
}

func TestAPI_LoginDecodesPayload(t *testing.T) {
	c := newTestServer(t, func(e *echo.Echo) {
		e.POST("/auth/login", func(ctx echo.Context) error {
			return ctx.JSON(http.StatusOK, map[string]any{
				"success": true,
				"data": map[string]any{
					"token":        "tok",
					"refreshToken": "ref",
					"user":         map[string]any{"id": "u1", "email": "alice@example.com", "role": "ADMIN"},
				},
			})
		})
	})

	payload, err := NewAPI(c).Login(context.Background(), ports.LoginInput{Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Token != "tok" || payload.RefreshToken != "ref" || payload.User == nil || payload.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestAPI_FailureBecomesAPIError(t *testing.T) {
	f := &fakeRequester{env: ports.Envelope{Status: http.StatusUnauthorized, Message: "Token expired"}}
	_, err := NewAPI(f).ListJournals(context.Background(), "tok")

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Token expired" {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("401 must match ErrNotAuthenticated")
	}
}

func TestAPI_Endpoints(t *testing.T) {
	f := &fakeRequester{env: ports.Envelope{Success: true, Status: http.StatusOK}}
	api := NewAPI(f)
	ctx := context.Background()

	api.LikePost(ctx, "tok", "p1")
	api.AddComment(ctx, "tok", "p1", ports.CommentInput{Content: "hi"})
	api.DeleteGoal(ctx, "tok", "g/1")
	api.DisableUser(ctx, "tok", "u1")
	api.SendVerificationEmail(ctx, "a@b.co")

	want := []string{
		"POST /posts/p1/like",
		"POST /posts/p1/comments",
		"DELETE /goals/g%2F1",
		"POST /admin/users/u1/disable",
		"POST /auth/resend-verification",
	}
	if len(f.calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, f.calls)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Fatalf("call %d: expected %q, got %q", i, want[i], f.calls[i])
		}
	}
}

func TestAPI_EmptyDataDecodesToZero(t *testing.T) {
	f := &fakeRequester{env: ports.Envelope{Success: true, Status: http.StatusOK}}
	journals, err := NewAPI(f).ListJournals(context.Background(), "tok")
	if err != nil || journals != nil {
		t.Fatalf("expected nil slice without error, got %v %v", journals, err)
	}
}
