// Package http provides the JSON API the tutoring UI talks to.
//
// The server exposes session management, ingestion, asynchronous
// course generation with a pollable status, the persisted deck, the
// placement quiz, and the tutor chat under /api/v1, plus /health.
// Domain errors map onto status codes by sentinel class: invalid
// input and unmet preconditions are 400, unparseable model output is
// 502, missing artifacts are 404, transient upstream failures are
// 503, and a second concurrent generation run is 409.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/course"
	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/quiz"
	"github.com/fyrsmithlabs/tutord/internal/session"
)

// SessionStore is the session surface the API serves. Satisfied by
// *session.Service.
type SessionStore interface {
	Get() (session.State, bool)
	Profile() (userName, studySubject string)
	Onboard(ctx context.Context, userName, subject, goal, level string) (session.State, error)
	Reset(ctx context.Context) error
	SetUploadedFiles(ctx context.Context, files []string) error
	SetQuizResult(ctx context.Context, level string) error
}

// Ingester runs document ingestion. Satisfied by *ingest.Service.
type Ingester interface {
	Ingest(ctx context.Context) ([]ingest.DocumentChunk, error)
}

// CourseRunner manages the background generation run. Satisfied by
// *course.Runner.
type CourseRunner interface {
	Start(topic string) (string, error)
	Status() course.RunStatus
	Cancel() bool
}

// QuizStore builds, loads, and persists the placement quiz. Satisfied
// by *quiz.Service.
type QuizStore interface {
	Build(ctx context.Context, subject string) ([]quiz.Question, error)
	Load() ([]quiz.Question, error)
}

// Chatter is the tutor chat surface. Satisfied by *chat.Service.
type Chatter interface {
	SetSlideContext(content string)
	Chat(ctx context.Context, message string) (string, error)
}

// IndexReadier prepares the search index before retrieval-backed
// endpoints run. On an unchanged corpus this is cheap: cached chunks,
// persisted collection.
type IndexReadier interface {
	EnsureReady(ctx context.Context) error
}

// Deps bundles the services the API serves.
type Deps struct {
	Session SessionStore
	Ingest  Ingester
	Runner  CourseRunner
	Quiz    QuizStore
	Chat    Chatter
	Readier IndexReadier

	// DeckFile is the path of the persisted slide deck.
	DeckFile string
}

// Server provides the tutord HTTP API.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *logging.Logger
	config *Config
}

// NewServer creates the HTTP server. All services in deps are
// required.
func NewServer(deps Deps, logger *logging.Logger, cfg *Config) (*Server, error) {
	switch {
	case deps.Session == nil:
		return nil, fmt.Errorf("%w: session store is required", ErrInvalidConfig)
	case deps.Ingest == nil:
		return nil, fmt.Errorf("%w: ingester is required", ErrInvalidConfig)
	case deps.Runner == nil:
		return nil, fmt.Errorf("%w: course runner is required", ErrInvalidConfig)
	case deps.Quiz == nil:
		return nil, fmt.Errorf("%w: quiz store is required", ErrInvalidConfig)
	case deps.Chat == nil:
		return nil, fmt.Errorf("%w: chatter is required", ErrInvalidConfig)
	case deps.Readier == nil:
		return nil, fmt.Errorf("%w: index readier is required", ErrInvalidConfig)
	case deps.DeckFile == "":
		return nil, fmt.Errorf("%w: deck file is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	logger = logger.Named("http")

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logger,
		config: cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	v1.PUT("/session", s.handleOnboard)
	v1.GET("/session", s.handleSessionShow)
	v1.DELETE("/session", s.handleSessionReset)

	v1.POST("/ingest", s.handleIngest)

	v1.POST("/courses", s.handleGenerate)
	v1.GET("/courses/status", s.handleRunStatus)
	v1.POST("/courses/cancel", s.handleRunCancel)
	v1.GET("/courses/current", s.handleDeck)
	v1.GET("/courses/current/markdown", s.handleDeckMarkdown)

	v1.POST("/quiz", s.handleQuizBuild)
	v1.GET("/quiz", s.handleQuizShow)
	v1.POST("/quiz/score", s.handleQuizScore)

	v1.POST("/chat", s.handleChat)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Echo exposes the underlying router so callers can attach extra
// handlers, such as the metrics endpoint.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
