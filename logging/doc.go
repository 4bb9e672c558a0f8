// Package logging provides a minimal logging interface and adapters for trichat.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the coordinator and HTTP server use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - RelayLogger with contextual cloning (component, session, turn)
//   - WithSession scoping any Logger to a session and turn
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	coord := fanout.New(registry, models, func(o *fanout.Options) { o.Logger = logger })
package logging
