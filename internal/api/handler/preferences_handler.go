package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

type PreferencesService interface {
	State() domain.Preferences
	SetDarkMode(ctx context.Context, on bool) ports.Result
	ToggleDarkMode(ctx context.Context) ports.Result
	CompleteOnboarding(ctx context.Context) ports.Result
	MarkLaunched(ctx context.Context) ports.Result
	ToggleNotifications(ctx context.Context) ports.Result
	SetScreenDimensions(d domain.Dimensions)
	SetActiveTab(tab string)
}

type PreferencesHandler struct {
	prefs PreferencesService
}

func NewPreferencesHandler(prefs PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

// patchPreferencesRequest applies only the fields that are present.
type patchPreferencesRequest struct {
	DarkMode            *bool              `json:"isDarkMode"`
	OnboardingSeen      *bool              `json:"hasSeenOnboarding"`
	Launched            *bool              `json:"launched"`
	ToggleNotifications bool               `json:"toggleNotifications"`
	ScreenDimensions    *domain.Dimensions `json:"screenDimensions"`
	ActiveTab           *string            `json:"activeTab" validate:"omitempty,min=1"`
}

// Get returns the current preferences.
//
// GET /v1/preferences
func (h *PreferencesHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, response{Success: true, Data: h.prefs.State()})
}

// Patch updates preferences field by field. Onboarding and first launch
// only move forward, so false values for them are ignored.
//
// PATCH /v1/preferences
func (h *PreferencesHandler) Patch(c echo.Context) error {
	var req patchPreferencesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	if req.DarkMode != nil {
		h.prefs.SetDarkMode(ctx, *req.DarkMode)
	}
	if req.OnboardingSeen != nil && *req.OnboardingSeen {
		h.prefs.CompleteOnboarding(ctx)
	}
	if req.Launched != nil && *req.Launched {
		h.prefs.MarkLaunched(ctx)
	}
	if req.ToggleNotifications {
		h.prefs.ToggleNotifications(ctx)
	}
	if req.ScreenDimensions != nil {
		h.prefs.SetScreenDimensions(*req.ScreenDimensions)
	}
	if req.ActiveTab != nil {
		h.prefs.SetActiveTab(*req.ActiveTab)
	}
	return c.JSON(http.StatusOK, response{Success: true, Data: h.prefs.State()})
}

// ToggleDarkMode flips the theme.
//
// POST /v1/preferences/dark-mode/toggle
func (h *PreferencesHandler) ToggleDarkMode(c echo.Context) error {
	res := h.prefs.ToggleDarkMode(c.Request().Context())
	return respond(c, http.StatusOK, res, h.prefs.State())
}
