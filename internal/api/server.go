// Package api exposes the query and analytics surface over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bull/course-rag-server/internal/rag"
	"github.com/bull/course-rag-server/internal/tool"
)

// QueryService is the coordinator surface the HTTP layer exposes.
type QueryService interface {
	Query(ctx context.Context, query, sessionID string) (*rag.Response, error)
	CourseAnalytics(ctx context.Context) (*rag.Analytics, error)
}

// HealthChecker reports whether the backing vector store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server is the HTTP front end.
type Server struct {
	echo    *echo.Echo
	service QueryService
	health  HealthChecker
	logger  *slog.Logger
}

// New creates a Server with routes registered.
func New(service QueryService, health HealthChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status)
			return nil
		},
	}))

	s := &Server{
		echo:    e,
		service: service,
		health:  health,
		logger:  logger,
	}

	e.POST("/api/query", s.handleQuery)
	e.GET("/api/courses", s.handleCourses)
	e.GET("/health", s.handleHealth)

	return s
}

// Start serves on addr until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Answer    string        `json:"answer"`
	Sources   []tool.Source `json:"sources"`
	SessionID string        `json:"session_id"`
}

func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query must not be empty")
	}

	resp, err := s.service.Query(c.Request().Context(), req.Query, req.SessionID)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
	}

	sources := resp.Sources
	if sources == nil {
		sources = []tool.Source{}
	}
	return c.JSON(http.StatusOK, queryResponse{
		Answer:    resp.Answer,
		Sources:   sources,
		SessionID: resp.SessionID,
	})
}

func (s *Server) handleCourses(c echo.Context) error {
	analytics, err := s.service.CourseAnalytics(c.Request().Context())
	if err != nil {
		s.logger.Error("course analytics failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "course analytics failed")
	}
	return c.JSON(http.StatusOK, analytics)
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := s.health.Health(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
