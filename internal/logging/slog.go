package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation   = "operation"
	KeyService     = "service"
	KeyAPI         = "api"
	KeySessionHash = "session_hash"
	KeyDuration    = "duration"
	KeyStatus      = "status"
	KeyError       = "error"
)

// Status values for consistent logging.
// Duplicated from the instrumentation package, which imports this one.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log output formats accepted by NewHandler.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewHandler builds the process-wide slog handler.
func NewHandler(w io.Writer, format string, debug bool) slog.Handler {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(format, FormatJSON) {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// API returns a slog attribute for the upstream API name.
func API(api string) slog.Attr {
	return slog.String(KeyAPI, api)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// A nil error yields an empty group, which slog omits from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeSession returns a short hash of a session id so log lines can be
// correlated without the cookie value ever reaching the logs.
func AnonymizeSession(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(sessionID))
	return "session:" + hex.EncodeToString(hash[:8])
}

// SessionHash returns a slog attribute with the anonymized session id.
func SessionHash(sessionID string) slog.Attr {
	return slog.String(KeySessionHash, AnonymizeSession(sessionID))
}

// SanitizeToken returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// TruncateID shortens a public identifier such as an OAuth client id for logs.
func TruncateID(id string) string {
	const keep = 20
	if len(id) <= keep {
		return id
	}
	return id[:keep] + "..."
}
