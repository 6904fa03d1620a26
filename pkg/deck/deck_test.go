package deck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDeck() *SlideDeck {
	return New("Rocket Propulsion", []Slide{
		{
			Section:   "Introduction",
			Topic:     "What is thrust",
			Narration: "Thrust is the force that moves a rocket forward.",
			Bullets:   []string{"Newton's third law", "Mass flow", "Exhaust velocity"},
		},
		{
			Section:   "Engines",
			Topic:     "Liquid fuel",
			Narration: "Liquid engines mix fuel and oxidizer in a chamber.",
			Bullets:   []string{"Turbopumps", "Combustion chamber"},
		},
		{
			Section:   "Engines",
			Topic:     "Solid fuel",
			Narration: "Solid motors burn a premixed grain.",
			Bullets:   []string{"Simplicity", "No throttling"},
		},
	})
}

func TestDeckRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.json")
	original := sampleDeck()

	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestDeckSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slides.json")

	require.NoError(t, sampleDeck().Save(path))

	// No temp file left behind after a successful save.
	assert.NoFileExists(t, path+".tmp")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "slides.json", entries[0].Name())
}

func TestDeckSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "slides.json")

	require.NoError(t, sampleDeck().Save(path))
	assert.FileExists(t, path)
}

func TestDeckSaveOverwritesPreviousDeck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.json")

	first := sampleDeck()
	require.NoError(t, first.Save(path))

	second := New("Orbital Mechanics", []Slide{
		{Section: "Basics", Topic: "Kepler", Narration: "n", Bullets: []string{"ellipses"}},
	})
	require.NoError(t, second.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.json")
	raw := `{"topic": "T", "slides": [{"section": "", "topic": "x", "narration": "", "bullets": []}]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidDeck)
}

func TestDeckValidate(t *testing.T) {
	tests := []struct {
		name    string
		deck    *SlideDeck
		wantErr bool
	}{
		{name: "valid", deck: sampleDeck()},
		{name: "empty deck with topic", deck: New("T", nil)},
		{name: "missing deck topic", deck: New("  ", nil), wantErr: true},
		{
			name:    "slide missing section",
			deck:    New("T", []Slide{{Topic: "x"}}),
			wantErr: true,
		},
		{
			name:    "slide missing topic",
			deck:    New("T", []Slide{{Section: "s"}}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.deck.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDeck)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSlideRender(t *testing.T) {
	slide := Slide{
		Section:   "Engines",
		Topic:     "Liquid fuel",
		Narration: "Liquid engines mix fuel and oxidizer.",
		Bullets:   []string{" Turbopumps ", "Combustion chamber"},
	}

	want := "# Engines\n## Liquid fuel\n" +
		"1. Turbopumps\n\n" +
		"2. Combustion chamber\n\n"
	assert.Equal(t, want, slide.Render(false))

	withNarration := slide.Render(true)
	assert.True(t, strings.HasPrefix(withNarration, want))
	assert.Contains(t, withNarration, "---\n\n\n")
	assert.True(t, strings.HasSuffix(withNarration, "*Liquid engines mix fuel and oxidizer.*"))
}

func TestDeckRender(t *testing.T) {
	rendered := sampleDeck().Render(false)

	assert.Contains(t, rendered, "# Introduction\n## What is thrust\n")
	assert.Contains(t, rendered, "# Engines\n## Liquid fuel\n")
	assert.NotContains(t, rendered, "*")

	narrated := sampleDeck().Render(true)
	assert.Contains(t, narrated, "*Thrust is the force that moves a rocket forward.*")
}

func TestDeckSections(t *testing.T) {
	assert.Equal(t, []string{"Introduction", "Engines"}, sampleDeck().Sections())
	assert.Empty(t, New("T", nil).Sections())
}
