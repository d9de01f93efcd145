// Package logging provides a minimal logging interface and adapters for Roundtable.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the scheduler, gateway and stores use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping a sugared zap logger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Backend: "zap", Level: "debug"})
//
// Loggers write to stderr by default; stdout carries the event stream.
package logging
