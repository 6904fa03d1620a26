package http

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/chat"
	"github.com/fyrsmithlabs/tutord/internal/course"
	"github.com/fyrsmithlabs/tutord/internal/embeddings"
	"github.com/fyrsmithlabs/tutord/internal/index"
	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/llm"
	"github.com/fyrsmithlabs/tutord/internal/outline"
	"github.com/fyrsmithlabs/tutord/internal/quiz"
	"github.com/fyrsmithlabs/tutord/internal/session"
	"github.com/fyrsmithlabs/tutord/pkg/deck"
)

// handleOnboard starts or replaces the session from the onboarding
// form.
func (s *Server) handleOnboard(c echo.Context) error {
	var req OnboardRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid onboard request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	state, err := s.deps.Session.Onboard(c.Request().Context(),
		req.UserName, req.StudySubject, req.StudyGoal, req.ExpertiseLevel)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) handleSessionShow(c echo.Context) error {
	state, ok := s.deps.Session.Get()
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no active session"})
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) handleSessionReset(c echo.Context) error {
	if err := s.deps.Session.Reset(c.Request().Context()); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleIngest runs ingestion over the source directory and records
// the uploaded files in the session. Unchanged files cost no model
// calls.
func (s *Server) handleIngest(c echo.Context) error {
	ctx := c.Request().Context()
	chunks, err := s.deps.Ingest.Ingest(ctx)
	if err != nil {
		return s.writeError(c, err)
	}

	files := sourceNames(chunks)
	if err := s.deps.Session.SetUploadedFiles(ctx, files); err != nil {
		// Ingestion itself succeeded and is cached; a failed
		// checkpoint write is not worth re-running it for.
		s.logger.Warn(ctx, "recording uploaded files failed", zap.Error(err))
	}
	return c.JSON(http.StatusOK, IngestResponse{Files: len(files), Chunks: len(chunks)})
}

// handleGenerate starts a background generation run. One run at a
// time: a concurrent start is rejected with 409.
func (s *Server) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid generate request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Topic) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "topic is required"})
	}

	runID, err := s.deps.Runner.Start(req.Topic)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, GenerateAccepted{RunID: runID})
}

func (s *Server) handleRunStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Runner.Status())
}

func (s *Server) handleRunCancel(c echo.Context) error {
	if !s.deps.Runner.Cancel() {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "no active generation run"})
	}
	return c.JSON(http.StatusAccepted, CancelResponse{Status: "canceling"})
}

func (s *Server) handleDeck(c echo.Context) error {
	d, err := deck.Load(s.deps.DeckFile)
	if errors.Is(err, os.ErrNotExist) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no deck generated yet"})
	}
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// handleDeckMarkdown renders the deck as markdown. narration=1
// includes the spoken text under each slide.
func (s *Server) handleDeckMarkdown(c echo.Context) error {
	d, err := deck.Load(s.deps.DeckFile)
	if errors.Is(err, os.ErrNotExist) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no deck generated yet"})
	}
	if err != nil {
		return s.writeError(c, err)
	}

	withNarration := false
	switch c.QueryParam("narration") {
	case "1", "true", "yes":
		withNarration = true
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(d.Render(withNarration)))
}

// handleQuizBuild generates and persists a placement quiz about the
// session's study subject.
func (s *Server) handleQuizBuild(c echo.Context) error {
	ctx := c.Request().Context()
	if _, ok := s.deps.Session.Get(); !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no active session, onboarding required"})
	}
	_, subject := s.deps.Session.Profile()

	if err := s.deps.Readier.EnsureReady(ctx); err != nil {
		return s.writeError(c, err)
	}
	questions, err := s.deps.Quiz.Build(ctx, subject)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, quizView(questions))
}

func (s *Server) handleQuizShow(c echo.Context) error {
	questions, err := s.deps.Quiz.Load()
	if errors.Is(err, os.ErrNotExist) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no quiz built yet"})
	}
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, quizView(questions))
}

// handleQuizScore grades the submitted answers and records the
// resulting expertise level in the session.
func (s *Server) handleQuizScore(c echo.Context) error {
	var req ScoreRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid score request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	questions, err := s.deps.Quiz.Load()
	if errors.Is(err, os.ErrNotExist) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no quiz built yet"})
	}
	if err != nil {
		return s.writeError(c, err)
	}

	result := quiz.Score(questions, req.Answers)
	if err := s.deps.Session.SetQuizResult(c.Request().Context(), result.Level); err != nil {
		s.logger.Warn(c.Request().Context(), "recording quiz result failed", zap.Error(err))
	}
	return c.JSON(http.StatusOK, result)
}

// handleChat runs one tutor chat exchange.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid chat request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
	}

	ctx := c.Request().Context()
	if err := s.deps.Readier.EnsureReady(ctx); err != nil {
		return s.writeError(c, err)
	}
	if req.SlideContext != "" {
		s.deps.Chat.SetSlideContext(req.SlideContext)
	}

	reply, err := s.deps.Chat.Chat(ctx, req.Message)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, ChatResponse{Reply: reply})
}

// writeError renders a domain error as the uniform JSON error body
// with the status its sentinel class maps to.
func (s *Server) writeError(c echo.Context, err error) error {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", zap.Error(err))
	}
	return c.JSON(status, ErrorResponse{Error: err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, course.ErrRunActive):
		return http.StatusConflict
	case isConfigError(err):
		return http.StatusBadRequest
	case errors.Is(err, outline.ErrParse), errors.Is(err, quiz.ErrParse):
		return http.StatusBadGateway
	case isTransientError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// isConfigError reports whether err belongs to the configuration
// class: invalid input, an unmet precondition, or an empty corpus.
func isConfigError(err error) bool {
	for _, sentinel := range []error{
		llm.ErrInvalidConfig,
		embeddings.ErrInvalidConfig,
		ingest.ErrInvalidConfig,
		ingest.ErrEmptyCorpus,
		index.ErrInvalidConfig,
		index.ErrNotSynced,
		index.ErrNoChunks,
		course.ErrInvalidConfig,
		quiz.ErrInvalidConfig,
		chat.ErrInvalidConfig,
		session.ErrInvalidConfig,
		session.ErrInvalidState,
		ErrInvalidConfig,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func isTransientError(err error) bool {
	return errors.Is(err, llm.ErrTransient) ||
		errors.Is(err, index.ErrEmbeddingFailed) ||
		errors.Is(err, embeddings.ErrEmbeddingFailed)
}

// sourceNames returns the distinct chunk sources in corpus order.
func sourceNames(chunks []ingest.DocumentChunk) []string {
	var names []string
	seen := make(map[string]bool)
	for _, chunk := range chunks {
		if !seen[chunk.Source] {
			seen[chunk.Source] = true
			names = append(names, chunk.Source)
		}
	}
	return names
}
