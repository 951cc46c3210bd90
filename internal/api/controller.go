// Package api exposes the HTTP surface: the event ingestion endpoint plus
// health and metrics.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guaxindiba/firenotify/internal/ingest"
	"github.com/guaxindiba/firenotify/internal/logger"
)

// IngestHandler runs the ingestion pipeline for one request.
type IngestHandler interface {
	Handle(ctx context.Context, req ingest.Request) ingest.Result
}

// Controller owns the echo instance and its routes.
type Controller struct {
	Echo *echo.Echo

	orchestrator IngestHandler
	log          logger.Logger
}

// New creates the controller and registers all routes. gatherer may be nil to
// skip the /metrics endpoint.
func New(orchestrator IngestHandler, log logger.Logger, gatherer prometheus.Gatherer) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	c := &Controller{Echo: e, orchestrator: orchestrator, log: log}

	// Any panic or unanticipated error surfaces as the standard JSON error
	// shape, never as a crash or an HTML error page.
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = c.handleError

	e.GET("/api/v1/events", c.IngestEvent)
	e.GET("/healthz", c.Healthz)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return c
}

// Healthz reports liveness.
func (c *Controller) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError is the top-level catch: every error that escapes a handler is
// rendered as the JSON error shape with the status mirrored in the body.
func (c *Controller) handleError(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := err.Error()
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	}

	c.log.Error("request failed",
		logger.String("path", ctx.Request().URL.Path),
		logger.Int("status", status),
		logger.Error(err))

	if jsonErr := ctx.JSON(status, eventResponse{
		Success: false,
		Status:  status,
		Error:   message,
	}); jsonErr != nil {
		c.log.Error("failed to write error response", logger.Error(jsonErr))
	}
}
