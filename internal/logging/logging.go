// Package logging wraps zap.Logger construction the way cmd/cli's
// createLogger did: development logging in verbose mode, production
// logging otherwise, and a no-op fallback so library constructors never
// have to nil-check before calling a method on the logger.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// New builds a zap.Logger for the given verbosity. Falls back to a no-op
// logger if zap's own construction fails (it practically never does with
// these presets, but we don't want a logging failure to abort tokenization).
func New(verbose bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NopIfNil returns logger unchanged, or a no-op logger if logger is nil.
// wordpiece.LoadVocabulary runs its optional *zap.Logger through this;
// alphabet.Build and bpe.Train do the same nil-to-no-op substitution
// themselves.
func NopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// StderrWarner writes the warnings spec §7 requires ("invalid UTF-8 in
// input text", "malformed vocabulary entries") once to stderr, matching
// the fixed collaborator contract when no structured logger is wired in.
// Call sites should prefer routing through a *zap.Logger when one is
// available; StderrWarner is the fallback.
func StderrWarner(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "WARNING "+format+"\n", args...)
}
