package course

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/logging"
)

// ErrRunActive is returned when a generation run is requested while
// another is still in flight. Only one run may execute at a time.
var ErrRunActive = errors.New("course: a generation run is already active")

// RunState names the lifecycle phase of the most recent run.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
	StateCanceled  RunState = "canceled"
)

// RunStatus is the pollable view of the most recent generation run.
type RunStatus struct {
	RunID     string   `json:"run_id,omitempty"`
	State     RunState `json:"state"`
	Detail    string   `json:"detail,omitempty"`
	Generated int      `json:"generated"`
	Skipped   int      `json:"skipped"`
}

// Generator runs one generation pipeline. Satisfied by *Service.
type Generator interface {
	Generate(ctx context.Context, runID, topic string, progress ProgressSink) (*RunReport, error)
}

// Runner executes generation runs in the background, one at a time,
// exposing a cancel handle and a status the UI can poll.
type Runner struct {
	generator Generator
	logger    *logging.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	status RunStatus
}

// NewRunner creates a runner around the given generator.
func NewRunner(generator Generator, logger *logging.Logger) (*Runner, error) {
	if generator == nil {
		return nil, fmt.Errorf("%w: generator is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{
		generator: generator,
		logger:    logger.Named("course.runner"),
		status:    RunStatus{State: StateIdle},
	}, nil
}

// Start launches a background generation run and returns its run ID.
// A second start while one is active fails with ErrRunActive.
//
// The run deliberately detaches from the caller's context: an HTTP
// request that kicks off a run returns long before the run finishes.
func (r *Runner) Start(topic string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return "", ErrRunActive
	}

	runID := NewRunID()
	runCtx, cancel := context.WithCancel(context.Background())
	r.active = true
	r.cancel = cancel
	r.status = RunStatus{RunID: runID, State: StateRunning, Detail: "starting"}

	go r.run(runCtx, cancel, runID, topic)
	return runID, nil
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, runID, topic string) {
	defer cancel()
	report, err := r.generator.Generate(ctx, runID, topic, r.progress)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.cancel = nil
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil):
		r.status.State = StateCanceled
		r.status.Detail = "run canceled"
	case err != nil:
		r.status.State = StateFailed
		r.status.Detail = err.Error()
	default:
		r.status.State = StateCompleted
		r.status.Generated = report.Generated
		r.status.Skipped = report.Skipped
		r.status.Detail = fmt.Sprintf("generated %d slides, skipped %d", report.Generated, report.Skipped)
	}
	r.logger.Info(context.Background(), "background run finished",
		zap.String("run_id", runID), zap.String("state", string(r.status.State)))
}

func (r *Runner) progress(message string) {
	r.mu.Lock()
	r.status.Detail = message
	r.mu.Unlock()
}

// Status returns the current run status.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Cancel aborts the active run, if any, and reports whether one was
// running. The status flips to canceled once the run unwinds.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

// Active reports whether a run is in flight.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
