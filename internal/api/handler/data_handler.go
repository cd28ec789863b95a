package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// DataService is the domain data container as seen by the control API.
type DataService interface {
	State() domain.Dataset
	LoadAllData(ctx context.Context) ports.Result
	RefreshStatistics(ctx context.Context) ports.Result

	CreateJournal(ctx context.Context, in ports.JournalInput) (*domain.Journal, ports.Result)
	UpdateJournal(ctx context.Context, id string, in ports.JournalInput) (*domain.Journal, ports.Result)
	DeleteJournal(ctx context.Context, id string) ports.Result

	CreateGoal(ctx context.Context, in ports.GoalInput) (*domain.Goal, ports.Result)
	UpdateGoal(ctx context.Context, id string, in ports.GoalInput) (*domain.Goal, ports.Result)
	DeleteGoal(ctx context.Context, id string) ports.Result

	CreatePost(ctx context.Context, in ports.PostInput) (*domain.Post, ports.Result)
	UpdatePost(ctx context.Context, id string, in ports.PostInput) (*domain.Post, ports.Result)
	DeletePost(ctx context.Context, id string) ports.Result
	LikePost(ctx context.Context, id string) ports.Result
	AddComment(ctx context.Context, id string, in ports.CommentInput) ports.Result
}

type DataHandler struct {
	data DataService
}

func NewDataHandler(data DataService) *DataHandler {
	return &DataHandler{data: data}
}

// Dataset returns everything currently loaded.
//
// GET /v1/data
func (h *DataHandler) Dataset(c echo.Context) error {
	return c.JSON(http.StatusOK, response{Success: true, Data: h.data.State()})
}

// Reload fetches all collections concurrently.
//
// POST /v1/data/reload
func (h *DataHandler) Reload(c echo.Context) error {
	res := h.data.LoadAllData(c.Request().Context())
	return respond(c, http.StatusOK, res, h.data.State())
}

// RefreshStatistics re-fetches only the statistics.
//
// POST /v1/data/statistics/refresh
func (h *DataHandler) RefreshStatistics(c echo.Context) error {
	res := h.data.RefreshStatistics(c.Request().Context())
	return respond(c, http.StatusOK, res, h.data.State().Statistics)
}

// ── Journals ──────────────────────────────────────────────────────────────────

func (h *DataHandler) CreateJournal(c echo.Context) error {
	var req ports.JournalInput
	if err := bind(c, &req); err != nil {
		return err
	}
	j, res := h.data.CreateJournal(c.Request().Context(), req)
	return respond(c, http.StatusCreated, res, j)
}

func (h *DataHandler) UpdateJournal(c echo.Context) error {
	var req ports.JournalInput
	if err := bind(c, &req); err != nil {
		return err
	}
	j, res := h.data.UpdateJournal(c.Request().Context(), c.Param("id"), req)
	return respond(c, http.StatusOK, res, j)
}

func (h *DataHandler) DeleteJournal(c echo.Context) error {
	res := h.data.DeleteJournal(c.Request().Context(), c.Param("id"))
	return respond(c, http.StatusOK, res, nil)
}

// ── Goals ─────────────────────────────────────────────────────────────────────

func (h *DataHandler) CreateGoal(c echo.Context) error {
	var req ports.GoalInput
	if err := bind(c, &req); err != nil {
		return err
	}
	g, res := h.data.CreateGoal(c.Request().Context(), req)
	return respond(c, http.StatusCreated, res, g)
}

func (h *DataHandler) UpdateGoal(c echo.Context) error {
	var req ports.GoalInput
	if err := bind(c, &req); err != nil {
		return err
	}
	g, res := h.data.UpdateGoal(c.Request().Context(), c.Param("id"), req)
	return respond(c, http.StatusOK, res, g)
}

func (h *DataHandler) DeleteGoal(c echo.Context) error {
	res := h.data.DeleteGoal(c.Request().Context(), c.Param("id"))
	return respond(c, http.StatusOK, res, nil)
}

// ── Posts ─────────────────────────────────────────────────────────────────────

func (h *DataHandler) CreatePost(c echo.Context) error {
	var req ports.PostInput
	if err := bind(c, &req); err != nil {
		return err
	}
	p, res := h.data.CreatePost(c.Request().Context(), req)
	return respond(c, http.StatusCreated, res, p)
}

func (h *DataHandler) UpdatePost(c echo.Context) error {
	var req ports.PostInput
	if err := bind(c, &req); err != nil {
		return err
	}
	p, res := h.data.UpdatePost(c.Request().Context(), c.Param("id"), req)
	return respond(c, http.StatusOK, res, p)
}

func (h *DataHandler) DeletePost(c echo.Context) error {
	res := h.data.DeletePost(c.Request().Context(), c.Param("id"))
	return respond(c, http.StatusOK, res, nil)
}

func (h *DataHandler) LikePost(c echo.Context) error {
	res := h.data.LikePost(c.Request().Context(), c.Param("id"))
	return respond(c, http.StatusOK, res, nil)
}

func (h *DataHandler) AddComment(c echo.Context) error {
	var req ports.CommentInput
	if err := bind(c, &req); err != nil {
		return err
	}
	res := h.data.AddComment(c.Request().Context(), c.Param("id"), req)
	return respond(c, http.StatusCreated, res, nil)
}
