package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if !logger.Enabled(zapcore.InfoLevel) {
		t.Error("info level should be enabled by default")
	}
	if logger.Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be disabled by default")
	}
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	if _, err := NewLogger(cfg, nil); err == nil {
		t.Error("NewLogger() expected error for invalid format")
	}
}

func TestLogger_TraceLevel(t *testing.T) {
	tl := NewTestLogger()
	tl.Trace(context.Background(), "prompt sent", zap.String("stage", "outline"))
	tl.AssertLogged(t, TraceLevel, "prompt sent")
}

func TestLogger_ContextCorrelation(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithRunID(context.Background(), "run-42")
	ctx = WithSessionID(ctx, "sess-1")

	tl.Info(ctx, "slide generated")

	tl.AssertField(t, "slide generated", "run.id", "run-42")
	tl.AssertField(t, "slide generated", "session.id", "sess-1")
}

func TestLogger_With(t *testing.T) {
	tl := NewTestLogger()
	child := tl.With(zap.String("component", "ingest"))
	child.Info(context.Background(), "chunks stored")

	entries := tl.FilterMessage("chunks stored").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	found := false
	for _, f := range entries[0].Context {
		if f.Key == "component" && f.String == "ingest" {
			found = true
		}
	}
	if !found {
		t.Error("child logger missing component field")
	}
}

func TestLogger_Named(t *testing.T) {
	tl := NewTestLogger()
	named := tl.Named("quiz")
	named.Info(context.Background(), "questions built")

	entries := tl.FilterMessage("questions built").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].LoggerName != "quiz" {
		t.Errorf("logger name = %q, want %q", entries[0].LoggerName, "quiz")
	}
}

func TestFromContext_Fallback(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("FromContext() returned nil")
	}
	// Must not panic on the nop logger.
	logger.Info(context.Background(), "ignored")
}

func TestFromContext_RoundTrip(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	got := FromContext(ctx)
	if got != tl.Logger {
		t.Error("FromContext() did not return stored logger")
	}
}
