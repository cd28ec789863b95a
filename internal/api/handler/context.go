package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/innerpath/client-core/internal/core/ports"
)

// response is the success envelope of the control API. Failures are
// rendered by the HTTP error handler as {"error": "..."}.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respond writes data on success and hands the result's error to the
// error handler otherwise.
func respond(c echo.Context, status int, res ports.Result, data any) error {
	if !res.Success {
		if res.Err != nil {
			return res.Err
		}
		return echo.NewHTTPError(http.StatusBadRequest, res.Message)
	}
	return c.JSON(status, response{Success: true, Message: res.Message, Data: data})
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}
