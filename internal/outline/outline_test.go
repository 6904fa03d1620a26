package outline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

type fakeCompleter struct {
	outlineText string
	outlineErr  error
	jsonReply   string
	jsonErr     error

	prompts     []string
	jsonPrompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.outlineText, f.outlineErr
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _ string, prompt string) (string, error) {
	f.jsonPrompts = append(f.jsonPrompts, prompt)
	return f.jsonReply, f.jsonErr
}

func TestGenerate_StructuredExtraction(t *testing.T) {
	completer := &fakeCompleter{
		outlineText: "<Introduction, What is a reactor, History>\n<Cooling, Loops, Pumps>",
		jsonReply: "```json\n" +
			`{"rows": [` +
			`{"section": "Introduction", "topics": "What is a reactor; History"},` +
			`{"section": "Cooling", "topics": "Loops; Pumps"}` +
			"]}\n```",
	}
	svc := NewService(completer, logging.Nop())

	entries, err := svc.Generate(context.Background(), "reactors", []string{"coolant", "turbine"})
	require.NoError(t, err)

	require.Equal(t, []Entry{
		{Section: "Introduction", Topics: []string{"What is a reactor", "History"}},
		{Section: "Cooling", Topics: []string{"Loops", "Pumps"}},
	}, entries)
}

func TestGenerate_PromptCoversKeywords(t *testing.T) {
	completer := &fakeCompleter{
		outlineText: "<Basics, One>",
		jsonReply:   `{"rows": [{"section": "Basics", "topics": "One"}]}`,
	}
	svc := NewService(completer, logging.Nop())

	_, err := svc.Generate(context.Background(), "reactors", []string{"coolant", "turbine"})
	require.NoError(t, err)

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "a course about reactors")
	assert.Contains(t, completer.prompts[0], "Make sure the outline completely covers these keywords: coolant, turbine")
	require.Len(t, completer.jsonPrompts, 1)
	assert.Contains(t, completer.jsonPrompts[0], completer.outlineText)
}

func TestGenerate_BareArrayReply(t *testing.T) {
	completer := &fakeCompleter{
		outlineText: "ignored",
		jsonReply:   `[{"section": "Basics", "topics": "One; Two"}]`,
	}
	svc := NewService(completer, logging.Nop())

	entries, err := svc.Generate(context.Background(), "reactors", nil)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Section: "Basics", Topics: []string{"One", "Two"}}}, entries)
}

func TestGenerate_DropsUnusableRows(t *testing.T) {
	completer := &fakeCompleter{
		outlineText: "ignored",
		jsonReply: `{"rows": [` +
			`{"section": "", "topics": "Orphan"},` +
			`{"section": "Empty", "topics": " ; "},` +
			`{"section": "Kept", "topics": "One"}` +
			`]}`,
	}
	svc := NewService(completer, logging.Nop())

	entries, err := svc.Generate(context.Background(), "reactors", nil)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Section: "Kept", Topics: []string{"One"}}}, entries)
}

func TestGenerate_FallsBackToLineParsing(t *testing.T) {
	completer := &fakeCompleter{
		outlineText: "<Introduction, What is a reactor, History>\nCooling, Loops, Pumps\nnot an outline line",
		jsonReply:   "the model ignored the schema",
	}
	svc := NewService(completer, logging.Nop())

	entries, err := svc.Generate(context.Background(), "reactors", nil)
	require.NoError(t, err)

	require.Equal(t, []Entry{
		{Section: "Introduction", Topics: []string{"What is a reactor", "History"}},
		{Section: "Cooling", Topics: []string{"Loops", "Pumps"}},
	}, entries)
}

func TestGenerate_FallsBackWhenExtractionCallFails(t *testing.T) {
	completer := &fakeCompleter{
		outlineText: "<Basics, One, Two>",
		jsonErr:     errors.New("model unavailable"),
	}
	svc := NewService(completer, logging.Nop())

	entries, err := svc.Generate(context.Background(), "reactors", nil)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Section: "Basics", Topics: []string{"One", "Two"}}}, entries)
}

func TestGenerate_ParseFailure(t *testing.T) {
	completer := &fakeCompleter{
		outlineText: "an outline with no separators at all",
		jsonReply:   "still not json",
	}
	svc := NewService(completer, logging.Nop())

	_, err := svc.Generate(context.Background(), "reactors", nil)
	require.ErrorIs(t, err, ErrParse)
}

func TestGenerate_OutlineCompletionError(t *testing.T) {
	completer := &fakeCompleter{outlineErr: errors.New("model unavailable")}
	svc := NewService(completer, logging.Nop())

	_, err := svc.Generate(context.Background(), "reactors", nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrParse)
	assert.Empty(t, completer.jsonPrompts)
}

func TestSplitTopics(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "canonical separator", in: "One; Two; Three", want: []string{"One", "Two", "Three"}},
		{name: "bare semicolons", in: "One;Two", want: []string{"One", "Two"}},
		{name: "trailing separator", in: "One; Two;", want: []string{"One", "Two"}},
		{name: "blank", in: " ; ", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitTopics(tt.in))
		})
	}
}
