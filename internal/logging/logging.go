// Package logging builds the logr.Logger used across the binary, backed by
// zap.
package logging

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stderr. verbosity maps to logr
// V-levels: 0 shows info, 1 shows per-iteration progress, and so on.
func New(verbosity int, development bool) (logr.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(levelFor(verbosity))
	cfg.DisableStacktrace = !development

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// NewForWriter returns a logger writing console-encoded entries to w, for
// tests and embedding.
func NewForWriter(w io.Writer, verbosity int) logr.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(levelFor(verbosity)))
	return zapr.NewLogger(zap.New(core))
}

// levelFor converts a logr verbosity into the zap level zapr expects:
// V(n) is logged at zap level -n.
func levelFor(verbosity int) zapcore.Level {
	if verbosity < 0 {
		verbosity = 0
	}
	return zapcore.Level(-verbosity)
}
