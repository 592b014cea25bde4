// Package api exposes the state of a running training loop over HTTP and
// lets an operator ask it to stop.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

type Server struct {
	tracker *Tracker
}

func NewServer(tracker *Tracker) *Server {
	return &Server{tracker: tracker}
}

// Register mounts the status routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/status", s.handleStatus)
	e.POST("/v1/stop", s.handleStop)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) handleStop(c *echo.Context) error {
	st, err := s.tracker.RequestStop()
	if errors.Is(err, ErrRunFinished) {
		return writeConflict(c, "training run has already finished")
	}
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	return c.JSON(http.StatusAccepted, st)
}

// NewEcho returns an echo instance with recovery and request logging
// middleware and the status routes registered.
func NewEcho(tracker *Tracker) *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	NewServer(tracker).Register(e)
	return e
}

// Serve listens on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, e *echo.Echo) error {
	sc := echo.StartConfig{
		Address: addr,
		BeforeServeFunc: func(srv *http.Server) error {
			srv.ReadHeaderTimeout = 10 * time.Second
			return nil
		},
	}
	return sc.Start(ctx, e)
}
