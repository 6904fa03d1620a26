package chat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig indicates unusable chat settings.
var ErrInvalidConfig = errors.New("chat: invalid configuration")

const (
	defaultHistoryFile = "cache/chat_history.json"
	defaultTokenBudget = 3000
	defaultToolRounds  = 4
	defaultTopK        = 3

	// charsPerToken approximates tokens for the history budget.
	charsPerToken = 4
)

// Config holds tutor chat settings.
type Config struct {
	// HistoryFile is where the conversation is persisted, relative
	// to the workspace root unless absolute.
	HistoryFile string `koanf:"history_file"`

	// TokenBudget bounds the history window kept in the prompt,
	// approximated at four characters per token.
	TokenBudget int `koanf:"token_budget"`

	// MaxToolRounds bounds consecutive tool-calling rounds per
	// exchange before the model is forced to answer.
	MaxToolRounds int `koanf:"max_tool_rounds"`

	// TopK is how many chunks the study_materials tool retrieves.
	TopK int `koanf:"top_k"`
}

// NewDefaultConfig returns the default chat configuration.
func NewDefaultConfig() *Config {
	return &Config{
		HistoryFile:   defaultHistoryFile,
		TokenBudget:   defaultTokenBudget,
		MaxToolRounds: defaultToolRounds,
		TopK:          defaultTopK,
	}
}

// ApplyDefaults fills unset fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.HistoryFile == "" {
		c.HistoryFile = defaultHistoryFile
	}
	if c.TokenBudget == 0 {
		c.TokenBudget = defaultTokenBudget
	}
	if c.MaxToolRounds == 0 {
		c.MaxToolRounds = defaultToolRounds
	}
	if c.TopK == 0 {
		c.TopK = defaultTopK
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HistoryFile) == "" {
		return fmt.Errorf("%w: history file is required", ErrInvalidConfig)
	}
	if c.TokenBudget < 1 {
		return fmt.Errorf("%w: token budget must be positive", ErrInvalidConfig)
	}
	if c.MaxToolRounds < 0 {
		return fmt.Errorf("%w: max tool rounds must not be negative", ErrInvalidConfig)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1", ErrInvalidConfig)
	}
	return nil
}
