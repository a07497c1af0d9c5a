// Package logging provides structured logging utilities for the safegate gateway.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "tasks.list")
//	logger.Info("dispatch completed",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("session authenticated",
//	    logging.SessionHash(sessionID))
//
// # Security Considerations
//
//   - Session ids are hashed, the cookie value never reaches the logs
//   - Tokens and client secrets are never logged directly
package logging
