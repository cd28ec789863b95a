package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

type AdminService interface {
	ListUsers(ctx context.Context) ([]domain.User, ports.Result)
	CreateUser(ctx context.Context, in ports.AdminUserInput) (*domain.User, ports.Result)
	UpdateUser(ctx context.Context, id string, in ports.AdminUserInput) (*domain.User, ports.Result)
	DisableUser(ctx context.Context, id string) (*domain.User, ports.Result)
	DeleteUser(ctx context.Context, id string) ports.Result
}

type AdminHandler struct {
	admin AdminService
}

func NewAdminHandler(admin AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, res := h.admin.ListUsers(c.Request().Context())
	return respond(c, http.StatusOK, res, users)
}

func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req ports.AdminUserInput
	if err := bind(c, &req); err != nil {
		return err
	}
	u, res := h.admin.CreateUser(c.Request().Context(), req)
	return respond(c, http.StatusCreated, res, u)
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req ports.AdminUserInput
	if err := bind(c, &req); err != nil {
		return err
	}
	u, res := h.admin.UpdateUser(c.Request().Context(), c.Param("id"), req)
	return respond(c, http.StatusOK, res, u)
}

func (h *AdminHandler) DisableUser(c echo.Context) error {
	u, res := h.admin.DisableUser(c.Request().Context(), c.Param("id"))
	return respond(c, http.StatusOK, res, u)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	res := h.admin.DeleteUser(c.Request().Context(), c.Param("id"))
	return respond(c, http.StatusOK, res, nil)
}
