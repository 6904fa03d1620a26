// Package chat is the conversational tutor: a tool-calling loop over
// the configured chat model with one tool, study_materials, that
// retrieves passages from the vector index.
//
// The conversation window is budget-trimmed and persisted after every
// exchange, so a restarted process resumes mid-conversation.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/index"
	"github.com/fyrsmithlabs/tutord/internal/logging"
)

const toolName = "study_materials"

const systemPrompt = "Your name is Tutord, a personal tutor. " +
	"Your purpose is to help %s study and better understand the topic of: %s. " +
	"We are now discussing the slide with the following content: %s"

// Retriever fetches relevant chunks for the study_materials tool.
// Satisfied by the index vector backends.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]index.SearchResult, error)
}

// Model is the chat completion surface. Satisfied by any
// langchaingo llms.Model.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// ProfileSource supplies the identity the system prompt personalizes
// with. Satisfied by *session.Service.
type ProfileSource interface {
	Profile() (userName, studySubject string)
}

// Service is the tutor chat engine.
type Service struct {
	config    *Config
	model     Model
	retriever Retriever
	profile   ProfileSource
	logger    *logging.Logger

	mu           sync.Mutex
	history      *history
	slideContext string
}

// NewService creates the chat service, loading any persisted
// conversation. A corrupt history file is logged and replaced by an
// empty conversation rather than blocking the tutor.
func NewService(cfg *Config, model Model, retriever Retriever, profile ProfileSource, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case model == nil:
		return nil, fmt.Errorf("%w: model is required", ErrInvalidConfig)
	case retriever == nil:
		return nil, fmt.Errorf("%w: retriever is required", ErrInvalidConfig)
	case profile == nil:
		return nil, fmt.Errorf("%w: profile source is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.Named("chat")

	hist, err := loadHistory(cfg.HistoryFile, cfg.TokenBudget*charsPerToken)
	if err != nil {
		logger.Warn(context.Background(), "chat history unusable, starting empty", zap.Error(err))
	}

	return &Service{
		config:    cfg,
		model:     model,
		retriever: retriever,
		profile:   profile,
		logger:    logger,
		history:   hist,
	}, nil
}

// SetSlideContext records the rendered content of the slide currently
// being discussed; empty means no slide is open.
func (s *Service) SetSlideContext(content string) {
	s.mu.Lock()
	s.slideContext = content
	s.mu.Unlock()
}

// History returns the persisted conversation window, oldest first.
func (s *Service) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history.all()...)
}

// Chat sends one user message through the tool-calling loop and
// returns the tutor's reply. Exchanges are serialized; the history is
// persisted after each one.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message is required", ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userName, subject := s.profile.Profile()
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(systemPrompt, userName, subject, s.slideContext)),
	}
	for _, m := range s.history.all() {
		switch m.Role {
		case RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case RoleAssistant:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, m.Content))
		}
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, message))

	answer, err := s.converse(ctx, messages)
	if err != nil {
		ChatsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	s.history.append(RoleUser, message)
	s.history.append(RoleAssistant, answer)
	if err := s.history.save(); err != nil {
		// The exchange already succeeded; losing the transcript is
		// worth a warning, not a failed reply.
		s.logger.Warn(ctx, "persisting chat history failed", zap.Error(err))
	}
	ChatsTotal.WithLabelValues("ok").Inc()
	return answer, nil
}

// converse drives the tool-calling loop. Tools are offered for up to
// MaxToolRounds rounds; the final round withholds them so the model
// must answer.
func (s *Service) converse(ctx context.Context, messages []llms.MessageContent) (string, error) {
	for round := 0; ; round++ {
		var opts []llms.CallOption
		if round < s.config.MaxToolRounds {
			opts = append(opts, llms.WithTools(toolDefinitions()))
		}
		resp, err := s.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return "", fmt.Errorf("chat: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("chat: model returned no choices")
		}
		choice := resp.Choices[0]
		if round >= s.config.MaxToolRounds || len(choice.ToolCalls) == 0 {
			return strings.TrimSpace(choice.Content), nil
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		for _, call := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, call)
		}
		messages = append(messages, assistant)

		for _, call := range choice.ToolCalls {
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: call.ID,
					Name:       toolName,
					Content:    s.runTool(ctx, call),
				}},
			})
		}
	}
}

// runTool executes one study_materials call. Failures are returned as
// text so the model can recover instead of aborting the exchange.
func (s *Service) runTool(ctx context.Context, call llms.ToolCall) string {
	ToolCallsTotal.Inc()
	if call.FunctionCall == nil || call.FunctionCall.Name != toolName {
		return "unknown tool"
	}
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil || strings.TrimSpace(args.Query) == "" {
		return `study_materials needs a plain text question in the "query" argument`
	}

	results, err := s.retriever.Search(ctx, args.Query, s.config.TopK)
	if err != nil {
		s.logger.Warn(ctx, "study materials lookup failed",
			zap.String("query", args.Query), zap.Error(err))
		return "study materials lookup failed: " + err.Error()
	}
	if len(results) == 0 {
		return "no relevant study material found"
	}
	passages := make([]string, 0, len(results))
	for _, result := range results {
		passages = append(passages, result.Text)
	}
	return strings.Join(passages, "\n\n")
}

func toolDefinitions() []llms.Tool {
	return []llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        toolName,
			Description: "A RAG engine with access to the user's study documents.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "A detailed plain text question about the study materials.",
					},
				},
				"required": []string{"query"},
			},
		},
	}}
}
