package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/innerpath/client-core/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Passes backend 4xx answers through with the backend's message.
//   - Logs unexpected errors internally without leaking details to the client.
//
// Every failure renders as {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, domain.Message(err)
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.Message(err)
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.Message(err)
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, domain.Message(err)
	case errors.Is(err, domain.ErrCooldownActive):
		return http.StatusTooManyRequests, err.Error()
	}

	// Remaining backend answers: client errors pass through, anything else
	// means the upstream is unhealthy or unreachable.
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status, apiErr.Message
		}
		log.Warn().
			Int("upstream_status", apiErr.Status).
			Str("path", c.Path()).
			Msg(apiErr.Message)
		return http.StatusBadGateway, apiErr.Message
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
