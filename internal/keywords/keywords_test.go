package keywords

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// fakeCompleter returns scripted responses in call order.
type fakeCompleter struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	i := len(f.prompts) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", nil
}

func TestAggregate(t *testing.T) {
	extractions := []string{
		"foo, bar, baz",
		"foo, baz",
		" foo ,  , ",
	}

	// foo appears 3 times, baz 2, bar 1.
	assert.Equal(t, []string{"foo", "baz"}, Aggregate(extractions))
}

func TestAggregate_TiesKeepFirstSeenOrder(t *testing.T) {
	extractions := []string{
		"thrust, orbit",
		"thrust, orbit",
		"apogee, apogee",
	}

	// All three have count 2: first-seen order wins.
	assert.Equal(t, []string{"thrust", "orbit", "apogee"}, Aggregate(extractions))
}

func TestAggregate_SingletonsDropped(t *testing.T) {
	assert.Empty(t, Aggregate([]string{"a, b, c"}))
	assert.Empty(t, Aggregate(nil))
}

func TestExtract(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"alpha, beta", "gamma, delta"}}
	svc := NewService(completer, logging.Nop())

	extractions, err := svc.Extract(context.Background(), []string{"first summary", "second summary"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha, beta", "gamma, delta"}, extractions)
	require.Len(t, completer.prompts, 2)
	assert.True(t, strings.HasPrefix(completer.prompts[0], "first summary."))
	assert.Contains(t, completer.prompts[0], "Give 10 unique keywords")
}

func TestExtract_SkipsBlankSummaries(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"alpha"}}
	svc := NewService(completer, logging.Nop())

	extractions, err := svc.Extract(context.Background(), []string{"  ", "real summary", ""})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha"}, extractions)
	assert.Len(t, completer.prompts, 1)
}

func TestExtract_ErrorPropagates(t *testing.T) {
	wantErr := errors.New("model down")
	completer := &fakeCompleter{errs: []error{wantErr}}
	svc := NewService(completer, logging.Nop())

	_, err := svc.Extract(context.Background(), []string{"summary"})
	assert.ErrorIs(t, err, wantErr)
}

func TestFilter_BatchesOf15(t *testing.T) {
	keywords := make([]string, 20)
	for i := range keywords {
		keywords[i] = fmt.Sprintf("kw%02d", i)
	}

	completer := &fakeCompleter{responses: []string{
		"kw00, kw03",
		"kw15, kw19",
	}}
	svc := NewService(completer, logging.Nop())

	filtered, dropped, err := svc.Filter(context.Background(), "rocketry", keywords)
	require.NoError(t, err)

	assert.Equal(t, []string{"kw00", "kw03", "kw15", "kw19"}, filtered)
	assert.Zero(t, dropped)

	require.Len(t, completer.prompts, 2)
	assert.Contains(t, completer.prompts[0], "the topic of rocketry")
	assert.Contains(t, completer.prompts[0], "kw14")
	assert.NotContains(t, completer.prompts[0], "kw15")
	assert.Contains(t, completer.prompts[1], "kw15")
}

func TestFilter_DropsFailedBatch(t *testing.T) {
	keywords := make([]string, 16)
	for i := range keywords {
		keywords[i] = fmt.Sprintf("kw%02d", i)
	}

	completer := &fakeCompleter{
		errs:      []error{errors.New("timeout"), nil},
		responses: []string{"", "kw15"},
	}
	svc := NewService(completer, logging.Nop())

	filtered, dropped, err := svc.Filter(context.Background(), "rocketry", keywords)
	require.NoError(t, err, "a failed batch must not fail the stage")

	assert.Equal(t, []string{"kw15"}, filtered)
	assert.Equal(t, 1, dropped)
}

func TestFilter_DedupesAcrossBatches(t *testing.T) {
	keywords := make([]string, 16)
	for i := range keywords {
		keywords[i] = fmt.Sprintf("kw%02d", i)
	}

	completer := &fakeCompleter{responses: []string{"thrust, orbit", "orbit, thrust, apogee"}}
	svc := NewService(completer, logging.Nop())

	filtered, dropped, err := svc.Filter(context.Background(), "rocketry", keywords)
	require.NoError(t, err)

	assert.Equal(t, []string{"thrust", "orbit", "apogee"}, filtered)
	assert.Zero(t, dropped)
}

func TestFilter_EmptyKeywords(t *testing.T) {
	completer := &fakeCompleter{}
	svc := NewService(completer, logging.Nop())

	filtered, dropped, err := svc.Filter(context.Background(), "rocketry", nil)
	require.NoError(t, err)

	assert.Empty(t, filtered)
	assert.Zero(t, dropped)
	assert.Empty(t, completer.prompts, "no batches means no completions")
}

func TestFilter_CanceledContext(t *testing.T) {
	svc := NewService(&fakeCompleter{}, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.Filter(ctx, "rocketry", []string{"kw"})
	assert.ErrorIs(t, err, context.Canceled)
}
