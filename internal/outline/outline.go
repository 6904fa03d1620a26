// Package outline synthesizes the course outline that drives slide
// generation.
//
// Generation is two completions: a free-text outline constrained to
// one line per section, then a JSON-mode extraction of that text into
// (section, topics) rows. Extraction is parsed tolerantly, with a
// line-splitting fallback over the free-text outline; only a run that
// yields zero usable rows through both paths fails.
package outline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/llm"
	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// ErrParse indicates no usable outline rows could be extracted. The
// pipeline must stop here: slide generation from zero sections is
// meaningless.
var ErrParse = errors.New("outline generation failed")

const outlinePrompt = "Create a structured course outline for a course about %s. " +
	"The outline should be divided in sections and each section should be divided in several topics. " +
	"Each section should have a sufficient number of topics to cover the entire knowledge area. " +
	"The outline will contain a gradual introduction of concepts, starting with a general introduction " +
	"on the subject and then covering more advanced areas. " +
	"Respond with one line per section using this format: " +
	"<SECTION TITLE, TOPIC 1, TOPIC 2, TOPIC 3, ... TOPIC n>. " +
	"Make sure the outline completely covers these keywords: %s"

const (
	extractSystemPrompt = "You convert free-text course outlines into JSON. " +
		"Respond with a JSON object of the form " +
		`{"rows": [{"section": "SECTION TITLE", "topics": "TOPIC 1; TOPIC 2"}]}. ` +
		`Topics are joined with "; ". Use only content from the outline.`

	extractUserPrompt = "Convert this outline into rows:\n%s"
)

// Completer issues completions, optionally in JSON response mode.
// Satisfied by *llm.Service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteJSON(ctx context.Context, system, prompt string) (string, error)
}

// Entry is one outline section with its ordered topics.
type Entry struct {
	Section string   `json:"section"`
	Topics  []string `json:"topics"`
}

// Service synthesizes course outlines.
type Service struct {
	completer Completer
	logger    *logging.Logger
}

// NewService creates an outline service.
func NewService(completer Completer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		completer: completer,
		logger:    logger.Named("outline"),
	}
}

// Generate produces the course outline for a topic. The keyword set
// steers coverage and may be empty; the topic label alone is enough to
// outline from.
func (s *Service) Generate(ctx context.Context, topic string, keywords []string) ([]Entry, error) {
	text, err := s.completer.Complete(ctx, fmt.Sprintf(outlinePrompt, topic, strings.Join(keywords, ", ")))
	if err != nil {
		return nil, fmt.Errorf("outline: %w", err)
	}

	entries := s.extract(ctx, text)
	if len(entries) == 0 {
		OutlinesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: no usable rows in outline", ErrParse)
	}

	topics := 0
	for _, entry := range entries {
		topics += len(entry.Topics)
	}
	s.logger.Info(ctx, "course outline generated",
		zap.Int("sections", len(entries)), zap.Int("topics", topics))
	return entries, nil
}

// extract converts the free-text outline into rows, preferring the
// JSON-mode extraction and falling back to line splitting.
func (s *Service) extract(ctx context.Context, text string) []Entry {
	response, err := s.completer.CompleteJSON(ctx, extractSystemPrompt, fmt.Sprintf(extractUserPrompt, text))
	if err == nil {
		if entries := parseRows(response); len(entries) > 0 {
			OutlinesTotal.WithLabelValues("structured").Inc()
			return entries
		}
	} else {
		s.logger.Warn(ctx, "structured outline extraction failed", zap.Error(err))
	}

	s.logger.Warn(ctx, "falling back to line parsing of the outline text")
	entries := parseLines(text)
	if len(entries) > 0 {
		OutlinesTotal.WithLabelValues("fallback").Inc()
	}
	return entries
}

type row struct {
	Section string `json:"section"`
	Topics  string `json:"topics"`
}

// parseRows decodes the JSON extraction reply, accepting either the
// requested {"rows": [...]} object or a bare row array.
func parseRows(response string) []Entry {
	cleaned := llm.CleanJSON(response)

	var payload struct {
		Rows []row `json:"rows"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil && len(payload.Rows) > 0 {
		return rowsToEntries(payload.Rows)
	}

	var bare []row
	if err := json.Unmarshal([]byte(cleaned), &bare); err == nil {
		return rowsToEntries(bare)
	}
	return nil
}

func rowsToEntries(rows []row) []Entry {
	var entries []Entry
	for _, r := range rows {
		section := strings.TrimSpace(r.Section)
		topics := splitTopics(r.Topics)
		if section == "" || len(topics) == 0 {
			continue
		}
		entries = append(entries, Entry{Section: section, Topics: topics})
	}
	return entries
}

// splitTopics splits a "; "-delimited topic list, tolerating bare ";"
// separators and stray whitespace.
func splitTopics(s string) []string {
	var topics []string
	for _, topic := range strings.Split(s, ";") {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}

// parseLines recovers rows from the free-text outline itself: one line
// per section, comma-separated, optionally wrapped in angle brackets.
func parseLines(text string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "<")
		line = strings.TrimSuffix(line, ">")
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			continue
		}
		section := strings.TrimSpace(fields[0])
		var topics []string
		for _, field := range fields[1:] {
			if field = strings.TrimSpace(field); field != "" {
				topics = append(topics, field)
			}
		}
		if section == "" || len(topics) == 0 {
			continue
		}
		entries = append(entries, Entry{Section: section, Topics: topics})
	}
	return entries
}
