// Package logging provides structured logging for tutord.
//
// # Overview
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug) for prompt/response payloads
//   - Dual output (stdout + OpenTelemetry log bridge)
//   - Automatic context field injection (trace_id, run.id, session.id)
//
// # Usage
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.Info(ctx, "outline generated", zap.Int("sections", n))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2026-03-02T10:15:30Z",
//	  "level": "info",
//	  "msg": "outline generated",
//	  "run.id": "7f3c...",
//	  "sections": 6
//	}
//
// # Trace level
//
// LLM prompts and raw completions are logged at Trace so that a normal Info
// or Debug run never writes user study material to stdout. Enable with
// level "trace" only when debugging generation quality.
//
// # Testing
//
// Use TestLogger for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Warn(ctx, "index load failed, rebuilding")
//	tl.AssertLogged(t, zapcore.WarnLevel, "rebuilding")
package logging
