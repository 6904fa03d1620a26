// Package deck defines the slide deck produced by course generation.
//
// A deck is a topic plus an ordered list of slides, each carrying the
// section it belongs to, its own topic, the spoken narration and the
// on-slide bullets. Decks round-trip losslessly through JSON and are
// saved atomically, so a persisted deck file is always either the old
// complete deck or the new complete deck.
package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidDeck indicates a deck that fails structural validation.
var ErrInvalidDeck = errors.New("invalid slide deck")

// Slide is a single slide with its presentation content.
type Slide struct {
	// Section is the course section the slide belongs to.
	Section string `json:"section"`

	// Topic is the slide's own title within the section.
	Topic string `json:"topic"`

	// Narration is the spoken-trainer text for the slide.
	Narration string `json:"narration"`

	// Bullets are the short on-slide points.
	Bullets []string `json:"bullets"`
}

// SlideDeck is an ordered collection of slides about one topic.
type SlideDeck struct {
	Topic  string  `json:"topic"`
	Slides []Slide `json:"slides"`
}

// New creates a deck from ordered slides.
func New(topic string, slides []Slide) *SlideDeck {
	return &SlideDeck{Topic: topic, Slides: slides}
}

// Load reads and validates a deck from a JSON file. A missing file
// satisfies errors.Is(err, os.ErrNotExist).
func Load(path string) (*SlideDeck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deck: %w", err)
	}

	var deck SlideDeck
	if err := json.Unmarshal(data, &deck); err != nil {
		return nil, fmt.Errorf("decoding deck: %w", err)
	}
	if err := deck.Validate(); err != nil {
		return nil, err
	}
	return &deck, nil
}

// Save writes the deck to path atomically: the content goes to a temp
// file in the target directory, is synced to disk, and is renamed over
// the destination. A crash mid-save leaves the previous file intact.
func (d *SlideDeck) Save(path string) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating deck directory: %w", err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling deck: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("writing deck: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing deck: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing deck: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing deck: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming deck: %w", err)
	}
	return nil
}

// Validate checks required fields: the deck topic, and section plus
// topic on every slide. Narration and bullets may be empty.
func (d *SlideDeck) Validate() error {
	if strings.TrimSpace(d.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidDeck)
	}
	for i, slide := range d.Slides {
		if strings.TrimSpace(slide.Section) == "" {
			return fmt.Errorf("%w: slide %d missing section", ErrInvalidDeck, i)
		}
		if strings.TrimSpace(slide.Topic) == "" {
			return fmt.Errorf("%w: slide %d missing topic", ErrInvalidDeck, i)
		}
	}
	return nil
}

// Sections returns the distinct slide sections in deck order.
func (d *SlideDeck) Sections() []string {
	var sections []string
	seen := make(map[string]bool)
	for _, slide := range d.Slides {
		if !seen[slide.Section] {
			seen[slide.Section] = true
			sections = append(sections, slide.Section)
		}
	}
	return sections
}

// Render returns the whole deck as markdown, one slide after another.
func (d *SlideDeck) Render(withNarration bool) string {
	parts := make([]string, len(d.Slides))
	for i, slide := range d.Slides {
		parts[i] = slide.Render(withNarration)
	}
	return strings.Join(parts, "\n")
}

// Render returns the slide as markdown: the section as a top-level
// heading, the topic below it, numbered bullets, and optionally a rule
// followed by the narration in italics.
func (s *Slide) Render(withNarration bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n## %s\n", s.Section, s.Topic)
	for i, bullet := range s.Bullets {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, strings.TrimSpace(bullet))
	}
	if withNarration {
		b.WriteString("---\n\n\n")
		fmt.Fprintf(&b, "*%s*", s.Narration)
	}
	return b.String()
}
