// Package llm provides text completion via langchaingo.
//
// This package wraps langchaingo's chat models behind a small service
// used by every content-generating component: keyword filtering,
// outline synthesis, narration, bullets, quizzes and chat. It supports
// OpenAI and Ollama backends, applies a shared rate limit, retries
// transient failures with exponential backoff, and logs full prompt
// and response payloads at trace level.
//
// Example usage:
//
//	cfg := llm.NewDefaultConfig()
//	cfg.APIKey = os.Getenv("OPENAI_API_KEY")
//	service, err := llm.NewService(cfg, logger)
//	if err != nil {
//	    // Handle error
//	}
//	text, err := service.Complete(ctx, "Explain gradient descent.")
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// Service provides rate-limited, retrying text completion.
type Service struct {
	model   llms.Model
	config  *Config
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewService creates a completion service for the configured provider.
func NewService(cfg *Config, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	var model llms.Model
	var err error
	switch cfg.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithServerURL(cfg.ServerURL),
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(httpClient),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Provider, err)
	}

	return &Service{
		model:   model,
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60.0), cfg.Burst),
		logger:  logger.Named("llm"),
	}, nil
}

// Complete sends a single-prompt completion request and returns the
// trimmed response text.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	s.logger.Trace(ctx, "completion request", zap.String("prompt", prompt))

	content, err := s.complete(ctx, messages, s.callOptions()...)
	if err != nil {
		return "", err
	}
	s.logger.Trace(ctx, "completion response", zap.String("content", content))
	return content, nil
}

// CompleteJSON sends a completion request in JSON mode with a system
// and a user message. The response is stripped of markdown code fences
// but not parsed; callers unmarshal into their own schema.
func (s *Service) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	s.logger.Trace(ctx, "json completion request",
		zap.String("system", system), zap.String("user", user))

	opts := append(s.callOptions(), llms.WithJSONMode())
	content, err := s.complete(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	content = CleanJSON(content)
	s.logger.Trace(ctx, "json completion response", zap.String("content", content))
	return content, nil
}

// complete runs the request with rate limiting and retries.
func (s *Service) complete(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			RetriesTotal.Inc()
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		content, err := s.generate(ctx, messages, opts...)
		if err == nil {
			return content, nil
		}

		lastErr = err
		if !errors.Is(err, ErrTransient) {
			return "", err
		}
		s.logger.Warn(ctx, "completion attempt failed",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// generate performs a single model call and classifies its outcome.
func (s *Service) generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	start := time.Now()
	resp, err := s.model.GenerateContent(ctx, messages, opts...)
	RequestDuration.WithLabelValues(s.config.Provider).Observe(time.Since(start).Seconds())

	if err != nil {
		RequestsTotal.WithLabelValues(s.config.Provider, "error").Inc()
		return "", classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		RequestsTotal.WithLabelValues(s.config.Provider, "error").Inc()
		return "", &transientError{err: errors.New("empty response from model")}
	}

	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		RequestsTotal.WithLabelValues(s.config.Provider, "error").Inc()
		return "", &transientError{err: errors.New("blank completion content")}
	}

	RequestsTotal.WithLabelValues(s.config.Provider, "success").Inc()
	return content, nil
}

func (s *Service) callOptions() []llms.CallOption {
	return []llms.CallOption{
		llms.WithTemperature(s.config.Temperature),
		llms.WithMaxTokens(s.config.MaxTokens),
	}
}

// Underlying returns the langchaingo model for callers that drive
// the conversation loop themselves, such as tool-calling chat.
func (s *Service) Underlying() llms.Model {
	return s.model
}

// Provider returns the configured provider name.
func (s *Service) Provider() string {
	return s.config.Provider
}

// CleanJSON strips markdown code fences that models sometimes wrap
// around JSON payloads, even in JSON mode.
func CleanJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
