package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrTransient marks completion failures that are worth retrying:
// timeouts, connection resets, rate limiting, server errors and empty
// responses. Callers decide whether to skip the unit of work or abort.
var ErrTransient = errors.New("transient completion failure")

// transientError wraps an error to indicate it can be retried.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

func (e *transientError) Is(target error) bool { return target == ErrTransient }

// transientMarkers are substrings of provider error messages that
// indicate a retryable condition. The langchaingo clients surface HTTP
// status failures as opaque formatted errors, so string matching is
// the only classification available.
var transientMarkers = []string{
	"429",
	"too many requests",
	"rate limit",
	"status code: 500",
	"status code: 502",
	"status code: 503",
	"status code: 504",
	"service unavailable",
	"connection refused",
	"connection reset",
	"timeout",
	"timed out",
	"unexpected eof",
}

// classify wraps retryable provider errors in a transientError.
// Context cancellation is never retryable: the caller asked to stop.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &transientError{err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return &transientError{err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return &transientError{err: err}
		}
	}
	return err
}
