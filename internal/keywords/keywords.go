// Package keywords extracts and refines the keyword set that steers
// course outline synthesis.
//
// The stage runs in three steps: Extract asks the model for keyword
// phrases per chunk summary, Aggregate tallies the phrases and keeps
// the recurring ones ordered by frequency, and Filter removes keywords
// too generic for the course topic, batch by batch. Filtering is
// advisory: a failed batch drops its keywords and the run continues.
package keywords

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/outputparser"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// filterBatchSize is how many keywords go into one genericness-filter
// completion.
const filterBatchSize = 15

const (
	extractionPrompt = "%s. Give 10 unique keywords for this document. Format as comma separated. Keywords: "

	filterPrompt = "Eliminate any keyword which is generic and not precisely specific to the topic of %s. " +
		"Format as comma separated. List just the remaining keywords: %s"
)

// Completer produces a single completion for a prompt. Satisfied by
// *llm.Service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service runs the keyword stage against the completion model.
type Service struct {
	completer Completer
	logger    *logging.Logger
}

// NewService creates a keyword service.
func NewService(completer Completer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		completer: completer,
		logger:    logger.Named("keywords"),
	}
}

// Extract requests keyword phrases for every chunk summary, one
// completion per summary. Each result is the model's raw
// comma-separated reply; blank summaries are skipped.
func (s *Service) Extract(ctx context.Context, summaries []string) ([]string, error) {
	extractions := make([]string, 0, len(summaries))
	for i, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(summary) == "" {
			continue
		}

		response, err := s.completer.Complete(ctx, fmt.Sprintf(extractionPrompt, summary))
		if err != nil {
			return nil, fmt.Errorf("extracting keywords for summary %d: %w", i, err)
		}
		extractions = append(extractions, response)
		ExtractionsTotal.Inc()
	}

	s.logger.Debug(ctx, "keywords extracted", zap.Int("summaries", len(extractions)))
	return extractions, nil
}

// Aggregate flattens comma-separated extractions, tallies exact phrase
// occurrences, and returns the phrases seen more than once, most
// frequent first. Ties keep first-seen order.
func Aggregate(extractions []string) []string {
	counts := make(map[string]int)
	var order []string
	for _, extraction := range extractions {
		for _, phrase := range strings.Split(extraction, ",") {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			if counts[phrase] == 0 {
				order = append(order, phrase)
			}
			counts[phrase]++
		}
	}

	var kept []string
	for _, phrase := range order {
		if counts[phrase] > 1 {
			kept = append(kept, phrase)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return counts[kept[i]] > counts[kept[j]]
	})
	return kept
}

// Filter removes keywords too generic for the topic. Keywords are
// filtered in batches; each batch's survivors keep their order and
// batches concatenate in batch order, deduplicated against earlier
// batches. A failed batch drops its keywords and increments the
// returned drop count; filtering never fails the run. The returned
// error is non-nil only when the context ends.
func (s *Service) Filter(ctx context.Context, topic string, keywords []string) ([]string, int, error) {
	parser := outputparser.NewCommaSeparatedList()

	var accepted []string
	seen := make(map[string]bool)
	dropped := 0

	for start := 0; start < len(keywords); start += filterBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, dropped, err
		}
		end := start + filterBatchSize
		if end > len(keywords) {
			end = len(keywords)
		}
		batch := strings.Join(keywords[start:end], ", ")

		response, err := s.completer.Complete(ctx, fmt.Sprintf(filterPrompt, topic, batch))
		if err != nil {
			dropped++
			FilterBatchesTotal.WithLabelValues("dropped").Inc()
			s.logger.Warn(ctx, "keyword filter batch failed, dropping its keywords",
				zap.Int("batch", start/filterBatchSize), zap.Error(err))
			continue
		}
		FilterBatchesTotal.WithLabelValues("filtered").Inc()

		parsed, err := parser.Parse(response)
		if err != nil {
			dropped++
			s.logger.Warn(ctx, "keyword filter reply unparseable, dropping its keywords",
				zap.Int("batch", start/filterBatchSize), zap.Error(err))
			continue
		}
		for _, phrase := range parsed {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" || seen[phrase] {
				continue
			}
			seen[phrase] = true
			accepted = append(accepted, phrase)
		}
	}

	s.logger.Info(ctx, "keywords filtered",
		zap.Int("in", len(keywords)),
		zap.Int("kept", len(accepted)),
		zap.Int("dropped_batches", dropped))
	return accepted, dropped, nil
}
