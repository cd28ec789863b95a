package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// SessionService is the slice of the auth store the control API drives.
type SessionService interface {
	State() domain.Session
	Login(ctx context.Context, email, password string) ports.Result
	Register(ctx context.Context, in ports.RegisterInput) ports.Result
	Logout(ctx context.Context) ports.Result
	RefreshSession(ctx context.Context) ports.Result
	UpdateProfile(ctx context.Context, in ports.ProfileUpdate) ports.Result
	ClearError()
}

type AuthHandler struct {
	session SessionService
}

func NewAuthHandler(session SessionService) *AuthHandler {
	return &AuthHandler{session: session}
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session returns the current session. Tokens are never rendered.
//
// GET /v1/session
func (h *AuthHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, response{Success: true, Data: h.session.State()})
}

// Login authenticates against the backend and stores the session.
//
// POST /v1/session/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res := h.session.Login(c.Request().Context(), req.Email, req.Password)
	return respond(c, http.StatusOK, res, h.session.State())
}

// Register creates an account; the caller still has to verify and log in.
//
// POST /v1/session/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}
	res := h.session.Register(c.Request().Context(), req)
	return respond(c, http.StatusCreated, res, nil)
}

// Logout always ends the local session.
//
// POST /v1/session/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	res := h.session.Logout(c.Request().Context())
	return respond(c, http.StatusOK, res, h.session.State())
}

// Refresh exchanges the refresh token for a new access token.
//
// POST /v1/session/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	res := h.session.RefreshSession(c.Request().Context())
	return respond(c, http.StatusOK, res, h.session.State())
}

// UpdateProfile patches the signed-in user's profile.
//
// PUT /v1/session/profile
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req ports.ProfileUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	res := h.session.UpdateProfile(c.Request().Context(), req)
	return respond(c, http.StatusOK, res, h.session.State().User)
}

// ClearError drops the session's last error.
//
// DELETE /v1/session/error
func (h *AuthHandler) ClearError(c echo.Context) error {
	h.session.ClearError()
	return c.NoContent(http.StatusNoContent)
}
