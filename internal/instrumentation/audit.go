package instrumentation

import (
	"context"
	"log/slog"
	"time"

)

// DispatchRecord captures one API call forwarded on behalf of a browser session.
//
// Session holds an anonymized session identifier, never the raw id: the raw id
// is the bearer credential of the browser.
type DispatchRecord struct {
	Session   string
	Backend   string
	API       string
	Operation string
	Resource  string

	StartTime      time.Time
	Duration       time.Duration
	Success        bool
	UpstreamStatus int
	Error          string

	TraceID string
	SpanID  string
}

// NewDispatchRecord starts timing a dispatched call.
func NewDispatchRecord(api, operation string) *DispatchRecord {
	return &DispatchRecord{
		API:       api,
		Operation: operation,
		StartTime: time.Now(),
	}
}

// WithSession sets the anonymized session identifier.
func (r *DispatchRecord) WithSession(hash string) *DispatchRecord {
	r.Session = hash
	return r
}

// WithBackend sets the name of the backend that served the call.
func (r *DispatchRecord) WithBackend(name string) *DispatchRecord {
	r.Backend = name
	return r
}

// WithResource sets the Google resource the call targets.
func (r *DispatchRecord) WithResource(id string) *DispatchRecord {
	r.Resource = id
	return r
}

// WithSpanContext copies trace and span ids from the span in ctx.
func (r *DispatchRecord) WithSpanContext(ctx context.Context) *DispatchRecord {
	r.TraceID = GetTraceID(ctx)
	r.SpanID = GetSpanID(ctx)
	return r
}

// Complete stops the timer and stores the outcome.
func (r *DispatchRecord) Complete(err error, upstreamStatus int) *DispatchRecord {
	r.Duration = time.Since(r.StartTime)
	r.Success = err == nil
	r.UpstreamStatus = upstreamStatus
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Status returns "success" or "error".
func (r *DispatchRecord) Status() string {
	if r.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the record as slog attributes. includeResource controls
// whether the Google resource id is part of the output.
func (r *DispatchRecord) LogAttrs(includeResource bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("api", r.API),
		slog.String("operation", r.Operation),
		slog.Duration("duration", r.Duration),
		slog.Bool("success", r.Success),
	}

	if r.Session != "" {
		attrs = append(attrs, slog.String("session", r.Session))
	}
	if r.Backend != "" {
		attrs = append(attrs, slog.String("backend", r.Backend))
	}
	if includeResource && r.Resource != "" {
		attrs = append(attrs, slog.String("resource", r.Resource))
	}
	if r.UpstreamStatus != 0 {
		attrs = append(attrs, slog.Int("upstream_status", r.UpstreamStatus))
	}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", r.SpanID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}

	return attrs
}

// AuditLogger writes one structured line per dispatched call.
// A nil *AuditLogger discards everything.
type AuditLogger struct {
	logger          *slog.Logger
	includeResource bool
	enabled         bool
}

// NewAuditLogger creates an AuditLogger from config.
func NewAuditLogger(logger *slog.Logger, config AuditConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:          logger.With(slog.String("component", "audit")),
		includeResource: config.IncludeResourceIDs,
		enabled:         config.Enabled,
	}
}

// LogDispatch logs a completed record at INFO on success and WARN on failure.
func (al *AuditLogger) LogDispatch(ctx context.Context, r *DispatchRecord) {
	if al == nil || !al.enabled || r == nil {
		return
	}

	level := slog.LevelInfo
	msg := "dispatch_completed"
	if !r.Success {
		level = slog.LevelWarn
		msg = "dispatch_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, r.LogAttrs(al.includeResource)...)
}
