// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and integrates with the Fiber report server.
//
// # Context Awareness
//
// The WithRayID helper extracts the RayID (Request ID) from a Fiber context
// and attaches it to the log entry, ensuring that all logs related to a
// specific request can be correlated. Import runs are correlated the same
// way through WithRunID.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Import started")
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
