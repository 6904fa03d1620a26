package llm

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// fakeModel returns scripted responses and records call options.
type fakeModel struct {
	responses []string
	errs      []error
	calls     int
	lastOpts  llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	idx := f.calls
	f.calls++

	f.lastOpts = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.lastOpts)
	}

	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	resp := ""
	if idx < len(f.responses) {
		resp = f.responses[idx]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: resp}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func newTestService(t *testing.T, model llms.Model) *Service {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.APIKey = "test-key"
	require.NoError(t, cfg.Validate())
	return &Service{
		model:   model,
		config:  cfg,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  logging.Nop(),
	}
}

func TestComplete_Success(t *testing.T) {
	fake := &fakeModel{responses: []string{"  hello world  "}}
	svc := newTestService(t, fake)

	got, err := svc.Complete(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, 1, fake.calls)
	assert.InDelta(t, 0.5, fake.lastOpts.Temperature, 0.001)
	assert.Equal(t, 4096, fake.lastOpts.MaxTokens)
}

func TestComplete_RetriesTransient(t *testing.T) {
	fake := &fakeModel{
		errs:      []error{fmt.Errorf("API returned unexpected status code: 429: slow down"), nil},
		responses: []string{"", "recovered"},
	}
	svc := newTestService(t, fake)

	got, err := svc.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 2, fake.calls)
}

func TestComplete_NonTransientFailsImmediately(t *testing.T) {
	fake := &fakeModel{
		errs: []error{fmt.Errorf("API error (400): invalid request")},
	}
	svc := newTestService(t, fake)

	_, err := svc.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTransient))
	assert.Equal(t, 1, fake.calls)
}

func TestComplete_ExhaustsRetries(t *testing.T) {
	fake := &fakeModel{
		errs: []error{
			fmt.Errorf("API returned unexpected status code: 503: overloaded"),
			fmt.Errorf("API returned unexpected status code: 503: overloaded"),
		},
	}
	svc := newTestService(t, fake)

	_, err := svc.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 2, fake.calls)
}

func TestComplete_EmptyChoicesIsTransient(t *testing.T) {
	svc := newTestService(t, &fakeModel{responses: []string{""}})
	svc.config.MaxRetries = 0

	_, err := svc.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient))
}

func TestCompleteJSON_StripsFencesAndSetsJSONMode(t *testing.T) {
	fake := &fakeModel{responses: []string{"```json\n{\"sections\": []}\n```"}}
	svc := newTestService(t, fake)

	got, err := svc.CompleteJSON(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"sections": []}`, got)
	assert.True(t, fake.lastOpts.JSONMode)
}

func TestNewService_UnsupportedProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Provider = "anthropic"

	_, err := NewService(cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestNewService_Ollama(t *testing.T) {
	cfg := &Config{Provider: ProviderOllama}

	svc, err := NewService(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, svc.Provider())
	assert.Equal(t, defaultOllamaModel, svc.config.Model)
	assert.NotNil(t, svc.Underlying())
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", errors.New("API returned unexpected status code: 429"), true},
		{"server error", errors.New("API returned unexpected status code: 500: boom"), true},
		{"gateway timeout", errors.New("request timed out"), true},
		{"connection refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"bad request", errors.New("API error (400): invalid model"), false},
		{"auth failure", errors.New("API returned unexpected status code: 401"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(ctx, tt.err)
			assert.Equal(t, tt.transient, errors.Is(got, ErrTransient))
		})
	}
}

func TestClassify_CanceledContextNeverTransient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := classify(ctx, errors.New("request timed out"))
	assert.False(t, errors.Is(got, ErrTransient))
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}
