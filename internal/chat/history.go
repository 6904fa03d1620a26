package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Message roles in the persisted conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one persisted conversation turn.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type historyFile struct {
	Messages []Message `json:"messages"`
}

// history is the rolling conversation window. Oldest messages fall
// off once the character budget is exceeded; the file on disk always
// mirrors the trimmed window.
type history struct {
	path     string
	budget   int // characters
	messages []Message
}

// loadHistory reads the persisted conversation, starting empty when
// the file is missing. A corrupt file is reported so the caller can
// log it; the returned history still works, starting empty.
func loadHistory(path string, budgetChars int) (*history, error) {
	h := &history{path: path, budget: budgetChars}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return h, fmt.Errorf("reading chat history: %w", err)
	}
	var file historyFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return h, fmt.Errorf("decoding chat history: %w", err)
	}
	h.messages = file.Messages
	h.trim()
	return h, nil
}

func (h *history) append(role, content string) {
	h.messages = append(h.messages, Message{Role: role, Content: content, At: time.Now().UTC()})
	h.trim()
}

// trim drops oldest messages until the window fits the budget. The
// newest message always stays, even oversized.
func (h *history) trim() {
	total := 0
	for _, m := range h.messages {
		total += len(m.Content)
	}
	for len(h.messages) > 1 && total > h.budget {
		total -= len(h.messages[0].Content)
		h.messages = h.messages[1:]
	}
}

func (h *history) all() []Message {
	return h.messages
}

func (h *history) save() error {
	data, err := json.MarshalIndent(historyFile{Messages: h.messages}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding chat history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0700); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing chat history: %w", err)
	}
	if err := os.Rename(tmp, h.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing chat history: %w", err)
	}
	return nil
}
