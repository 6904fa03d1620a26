// Package course orchestrates the full generation pipeline: ingest,
// index sync, keyword aggregation, outline synthesis, per-topic slide
// generation, and deck persistence.
//
// A run either completes (possibly with skipped topics, reported in
// the RunReport) or fails before persisting anything: partial decks
// are never written. Runner wraps the pipeline for background
// execution with cancellation and a pollable status.
package course

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/keywords"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/outline"
	"github.com/fyrsmithlabs/tutord/pkg/deck"
)

const narrationPrompt = "You are an expert %s trainer. " +
	"You are now covering the section titled '%s'. " +
	"Introduce and explain the concept of '%s' to your students. " +
	"Respond as you are the trainer."

const bulletsPrompt = "Summarize the essential concepts from this text as maximum 7 very short slide bullets without verbs: %s\n" +
	" The general topic of the presentation is %s\n" +
	" The slide title is %s-%s " +
	"List the bullets separated with semicolons like this: BULLET1, BULLET2, ...: "

// Ingester produces the document chunks the pipeline runs on.
// Satisfied by *ingest.Service.
type Ingester interface {
	Ingest(ctx context.Context) ([]ingest.DocumentChunk, error)
}

// Index synchronizes a derived index with the corpus.
type Index interface {
	Sync(ctx context.Context, chunks []ingest.DocumentChunk) error
}

// Narrator is the hierarchical index surface the slide stage queries.
// Satisfied by *index.TreeIndex.
type Narrator interface {
	Index
	Query(ctx context.Context, prompt string) (string, error)
}

// KeywordStage extracts and filters corpus keywords. Satisfied by
// *keywords.Service.
type KeywordStage interface {
	Extract(ctx context.Context, summaries []string) ([]string, error)
	Filter(ctx context.Context, topic string, kws []string) ([]string, int, error)
}

// Outliner synthesizes the course outline. Satisfied by
// *outline.Service.
type Outliner interface {
	Generate(ctx context.Context, topic string, kws []string) ([]outline.Entry, error)
}

// Completer issues plain text completions.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProgressSink receives human-readable progress messages as the run
// moves between stages and slides.
type ProgressSink func(message string)

// RunReport summarizes a completed generation run. Skipped > 0 with a
// nil error means the deck was persisted without the named topics.
type RunReport struct {
	RunID                 string        `json:"run_id"`
	Generated             int           `json:"generated"`
	Skipped               int           `json:"skipped"`
	SkippedTopics         []string      `json:"skipped_topics,omitempty"`
	KeywordBatchesDropped int           `json:"keyword_batches_dropped,omitempty"`
	Duration              time.Duration `json:"duration"`
}

// Deps bundles the pipeline stages the orchestrator sequences.
type Deps struct {
	Ingester  Ingester
	Vector    Index
	Tree      Narrator
	Keywords  KeywordStage
	Outliner  Outliner
	Completer Completer
}

// Service runs the course generation pipeline.
type Service struct {
	config *Config
	deps   Deps
	logger *logging.Logger
}

// NewService creates the orchestrator. All dependencies are required.
func NewService(cfg *Config, deps Deps, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Ingester == nil:
		return nil, fmt.Errorf("%w: ingester is required", ErrInvalidConfig)
	case deps.Vector == nil:
		return nil, fmt.Errorf("%w: vector index is required", ErrInvalidConfig)
	case deps.Tree == nil:
		return nil, fmt.Errorf("%w: tree index is required", ErrInvalidConfig)
	case deps.Keywords == nil:
		return nil, fmt.Errorf("%w: keyword stage is required", ErrInvalidConfig)
	case deps.Outliner == nil:
		return nil, fmt.Errorf("%w: outliner is required", ErrInvalidConfig)
	case deps.Completer == nil:
		return nil, fmt.Errorf("%w: completer is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		config: cfg,
		deps:   deps,
		logger: logger.Named("course"),
	}, nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Generate runs the full pipeline for topic and persists the deck.
// runID tags the run in the report and logs; empty means self-assign.
// The progress sink may be nil.
func (s *Service) Generate(ctx context.Context, runID, topic string, progress ProgressSink) (*RunReport, error) {
	started := time.Now()
	if runID == "" {
		runID = NewRunID()
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidConfig)
	}
	report := &RunReport{RunID: runID}
	emit := func(message string) {
		if progress != nil {
			progress(message)
		}
	}
	s.logger.Info(ctx, "course generation started",
		zap.String("run_id", runID), zap.String("topic", topic))

	emit("loading documents")
	chunks, err := s.deps.Ingester.Ingest(ctx)
	if err != nil {
		return nil, s.fail(ctx, report, started, fmt.Errorf("ingest: %w", err))
	}
	if err := s.deps.Vector.Sync(ctx, chunks); err != nil {
		return nil, s.fail(ctx, report, started, fmt.Errorf("index: %w", err))
	}
	if err := s.deps.Tree.Sync(ctx, chunks); err != nil {
		return nil, s.fail(ctx, report, started, fmt.Errorf("index: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, report, started, err)
	}

	emit("preparing summaries and keywords")
	filtered, err := s.keywordStage(ctx, topic, chunks, report)
	if err != nil {
		return nil, s.fail(ctx, report, started, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, report, started, err)
	}

	emit("creating the course outline")
	entries, err := s.deps.Outliner.Generate(ctx, topic, filtered)
	if err != nil {
		return nil, s.fail(ctx, report, started, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, report, started, err)
	}

	slides, err := s.slideStage(ctx, topic, entries, report, emit)
	if err != nil {
		return nil, s.fail(ctx, report, started, err)
	}

	emit("saving deck")
	d := deck.New(topic, slides)
	if err := d.Save(s.config.DeckFile); err != nil {
		return nil, s.fail(ctx, report, started, fmt.Errorf("deck: %w", err))
	}

	report.Duration = time.Since(started)
	RunsTotal.WithLabelValues("completed").Inc()
	RunDuration.Observe(report.Duration.Seconds())
	s.logger.Info(ctx, "course generation completed",
		zap.String("run_id", runID),
		zap.Int("generated", report.Generated),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// keywordStage extracts, aggregates, and filters corpus keywords. A
// zero-keyword corpus is tolerated; the outline works from the topic
// label alone.
func (s *Service) keywordStage(ctx context.Context, topic string, chunks []ingest.DocumentChunk, report *RunReport) ([]string, error) {
	summaries := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		summaries = append(summaries, chunk.Summary)
	}
	extractions, err := s.deps.Keywords.Extract(ctx, summaries)
	if err != nil {
		return nil, fmt.Errorf("keywords: %w", err)
	}
	filtered, dropped, err := s.deps.Keywords.Filter(ctx, topic, keywords.Aggregate(extractions))
	if err != nil {
		return nil, fmt.Errorf("keywords: %w", err)
	}
	report.KeywordBatchesDropped = dropped
	return filtered, nil
}

// slideStage generates one slide per outline topic in traversal order.
// A topic whose generation still fails after the client's retries is
// skipped and reported; the run continues.
func (s *Service) slideStage(ctx context.Context, topic string, entries []outline.Entry, report *RunReport, emit func(string)) ([]deck.Slide, error) {
	total := 0
	for _, entry := range entries {
		total += len(entry.Topics)
	}

	slides := make([]deck.Slide, 0, total)
	n := 0
	for _, entry := range entries {
		for _, slideTopic := range entry.Topics {
			n++
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			emit(fmt.Sprintf("generating slide %d/%d: %s - %s", n, total, entry.Section, slideTopic))

			slide, err := s.generateSlide(ctx, topic, entry.Section, slideTopic)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				report.Skipped++
				report.SkippedTopics = append(report.SkippedTopics, entry.Section+"/"+slideTopic)
				SlidesTotal.WithLabelValues("skipped").Inc()
				s.logger.Warn(ctx, "slide generation failed, topic skipped",
					zap.String("section", entry.Section),
					zap.String("topic", slideTopic),
					zap.Error(err))
				continue
			}
			slides = append(slides, slide)
			report.Generated++
			SlidesTotal.WithLabelValues("generated").Inc()
		}
	}
	return slides, nil
}

func (s *Service) generateSlide(ctx context.Context, topic, section, slideTopic string) (deck.Slide, error) {
	narration, err := s.deps.Tree.Query(ctx, fmt.Sprintf(narrationPrompt, topic, section, slideTopic))
	if err != nil {
		return deck.Slide{}, fmt.Errorf("narration: %w", err)
	}
	reply, err := s.deps.Completer.Complete(ctx, fmt.Sprintf(bulletsPrompt, narration, topic, section, slideTopic))
	if err != nil {
		return deck.Slide{}, fmt.Errorf("bullets: %w", err)
	}
	return deck.Slide{
		Section:   section,
		Topic:     slideTopic,
		Narration: narration,
		Bullets:   splitBullets(reply),
	}, nil
}

// splitBullets splits a semicolon-delimited bullet reply, trimming
// entries and dropping empties. The 7-bullet cap is advisory and not
// enforced here.
func splitBullets(reply string) []string {
	var bullets []string
	for _, bullet := range strings.Split(reply, ";") {
		if bullet = strings.TrimSpace(bullet); bullet != "" {
			bullets = append(bullets, bullet)
		}
	}
	return bullets
}

func (s *Service) fail(ctx context.Context, report *RunReport, started time.Time, err error) error {
	report.Duration = time.Since(started)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		RunsTotal.WithLabelValues("canceled").Inc()
		s.logger.Warn(ctx, "course generation canceled",
			zap.String("run_id", report.RunID))
		return err
	}
	RunsTotal.WithLabelValues("failed").Inc()
	s.logger.Error(ctx, "course generation failed",
		zap.String("run_id", report.RunID), zap.Error(err))
	return err
}
