// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	func main() {
//	    logger := logging.NewLogger()
//	    slog.SetDefault(logger)
//	}
//
//	func reconcile(ctx context.Context) {
//	    logger := logging.FromContext(ctx)
//	    logger.Info("reconcile started")
//	}
package logging
