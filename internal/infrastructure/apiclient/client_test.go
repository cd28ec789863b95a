package apiclient

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

	"github.com/innerpath/client-core/internal/core/ports"
)

func newTestServer(t *testing.T, register func(e *echo.Echo)) *Client {
	t.Helper()
	e := echo.New()
	register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Timeout: time.Second, DeviceID: "dev-1"}, zerolog.Nop())
}

func TestRequest_Success(t *testing.T) {
	var gotAuth, gotDevice, gotCustom, gotBody string
	c := newTestServer(t, func(e *echo.Echo) {
		e.POST("/journals", func(ctx echo.Context) error {
			gotAuth = ctx.Request().Header.Get("Authorization")
			gotDevice = ctx.Request().Header.Get("X-Device-ID")
			gotCustom = ctx.Request().Header.Get("X-Trace")
			var body map[string]string
			_ = json.NewDecoder(ctx.Request().Body).Decode(&body)
			gotBody = body["title"]
			return ctx.JSON(http.StatusCreated, map[string]any{
				"success": true,
				"data":    map[string]string{"id": "j1"},
				"message": "created",
			})
		})
	})

	env := c.Request(context.Background(), "/journals", ports.RequestOptions{
		Method:  http.MethodPost,
		Token:   "tok",
		Headers: map[string]string{"X-Trace": "abc"},
		Body:    map[string]string{"title": "Hello"},
	})

	if !env.Success || env.Status != http.StatusCreated || env.Message != "created" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if !strings.Contains(string(env.Data), `"j1"`) {
		t.Fatalf("unexpected data %s", env.Data)
	}
	if gotAuth != "Bearer tok" || gotDevice != "dev-1" || gotCustom != "abc" || gotBody != "Hello" {
		t.Fatalf("headers/body not sent: auth=%q device=%q custom=%q body=%q", gotAuth, gotDevice, gotCustom, gotBody)
	}
}

func TestRequest_ErrorMessageFromBody(t *testing.T) {
	c := newTestServer(t, func(e *echo.Echo) {
		e.POST("/auth/login", func(ctx echo.Context) error {
			return ctx.JSON(http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
		})
	})

	env := c.Request(context.Background(), "/auth/login", ports.RequestOptions{Method: http.MethodPost})
	if env.Success || env.Status != http.StatusUnauthorized || env.Message != "Invalid credentials" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestRequest_NonJSONFailure(t *testing.T) {
	c := newTestServer(t, func(e *echo.Echo) {
		e.GET("/goals", func(ctx echo.Context) error {
			return ctx.String(http.StatusBadGateway, "<html>bad gateway</html>")
		})
	})

	env := c.Request(context.Background(), "/goals", ports.RequestOptions{})
	if env.Success || env.Message != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestRequest_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := New(Config{BaseURL: url}, zerolog.Nop())

	env := c.Request(context.Background(), "/goals", ports.RequestOptions{})
	if env.Success || env.Message != msgNetwork {
		t.Fatalf("expected network failure, got %+v", env)
	}
}

func TestRequest_Timeout(t *testing.T) {
	c := newTestServer(t, func(e *echo.Echo) {
		e.GET("/slow", func(ctx echo.Context) error {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Request().Context().Done():
			}
			return ctx.NoContent(http.StatusOK)
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	env := c.Request(ctx, "/slow", ports.RequestOptions{})
	if env.Success || env.Message != msgTimeout {
		t.Fatalf("expected timeout, got %+v", env)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		success bool
		message string
		data    string
	}{
		{"envelope", 200, `{"success":true,"data":[1,2]}`, true, "", `[1,2]`},
		{"bare body", 200, `[{"_id":"a"}]`, true, "", `[{"_id":"a"}]`},
		{"success false on 200", 200, `{"success":false,"message":"nope"}`, false, "nope", ""},
		{"nested error", 400, `{"error":{"message":"bad input"}}`, false, "bad input", `{"error":{"message":"bad input"}}`},
		{"validation list", 422, `{"success":false,"errors":[{"msg":"email is invalid"}]}`, false, "email is invalid", ""},
		{"empty 204", 204, ``, true, "", ""},
		{"empty 500", 500, ``, false, "Internal Server Error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := normalize(tt.status, []byte(tt.body))
			if env.Success != tt.success || env.Message != tt.message || string(env.Data) != tt.data {
				t.Fatalf("got %+v (data %s)", env, env.Data)
			}
		})
	}
}
