// Package logging provides the structured logger used across the
// superblock manager. It follows the zap usage shown in the reference
// corpus's service layers: a package-level constructor that returns a
// SugaredLogger, with a no-op fallback so callers that don't care about
// logs never need a nil check.
package logging

import "go.uber.org/zap"

// New builds a SugaredLogger at the given level ("debug", "info", "warn",
// "error"). An unrecognized level falls back to "info".
func New(level string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// NopLogger returns a logger that discards everything, the same kind of
// logger Volume and Committer substitute when given a nil one.
func NopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
