package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/api/metrics"
	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

type EmailService interface {
	State() domain.EmailFlowStatus
	SendVerificationEmail(ctx context.Context, email string) ports.Result
	SendPasswordResetEmail(ctx context.Context, email string) ports.Result
	VerifyEmail(ctx context.Context, token string) ports.Result
	ResetPassword(ctx context.Context, token, newPassword string) ports.Result
	ResetStatus(ctx context.Context)
}

type EmailHandler struct {
	email EmailService
}

func NewEmailHandler(email EmailService) *EmailHandler {
	return &EmailHandler{email: email}
}

type emailRequest struct {
	Email string `json:"email" validate:"required"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// Status returns both workflows with their cooldowns.
//
// GET /v1/email
func (h *EmailHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, response{Success: true, Data: h.email.State()})
}

// SendVerification requests a verification email.
//
// POST /v1/email/verification
func (h *EmailHandler) SendVerification(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res := h.email.SendVerificationEmail(c.Request().Context(), req.Email)
	observe(domain.WorkflowVerification, res)
	return respond(c, http.StatusOK, res, h.email.State().Verification)
}

// SendPasswordReset requests a password reset email.
//
// POST /v1/email/password-reset
func (h *EmailHandler) SendPasswordReset(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res := h.email.SendPasswordResetEmail(c.Request().Context(), req.Email)
	observe(domain.WorkflowPasswordReset, res)
	return respond(c, http.StatusOK, res, h.email.State().PasswordReset)
}

// Verify consumes a verification token.
//
// POST /v1/email/verify
func (h *EmailHandler) Verify(c echo.Context) error {
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res := h.email.VerifyEmail(c.Request().Context(), req.Token)
	return respond(c, http.StatusOK, res, h.email.State().Verification)
}

// ResetPassword sets a new password with a reset token.
//
// POST /v1/email/reset-password
func (h *EmailHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res := h.email.ResetPassword(c.Request().Context(), req.Token, req.NewPassword)
	return respond(c, http.StatusOK, res, h.email.State().PasswordReset)
}

// Reset returns both workflows to the unsent state.
//
// DELETE /v1/email
func (h *EmailHandler) Reset(c echo.Context) error {
	h.email.ResetStatus(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func observe(w domain.Workflow, res ports.Result) {
	result := "ok"
	if !res.Success {
		result = "error"
	}
	metrics.EmailRequestsTotal.WithLabelValues(string(w), result).Inc()
}
