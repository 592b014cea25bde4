package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
)

// ErrRunFinished is returned by Tracker.RequestStop once the run is over.
var ErrRunFinished = errors.New("api: run already finished")

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{Message: msg, Type: errType},
	})
}

func writeConflict(c *echo.Context, msg string) error {
	return writeError(c, http.StatusConflict, "conflict_error", msg)
}
