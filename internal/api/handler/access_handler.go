package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/core/domain"
)

type AccessHandler struct {
	current func() *domain.Access
}

// NewAccessHandler serves the access derived for the current session.
func NewAccessHandler(current func() *domain.Access) *AccessHandler {
	return &AccessHandler{current: current}
}

// Access returns permissions and navigation for the signed-in role.
//
// GET /v1/access
func (h *AccessHandler) Access(c echo.Context) error {
	return c.JSON(http.StatusOK, response{Success: true, Data: h.current()})
}
