package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSession = "session:0123456789abcdef"

func TestDispatchRecord_Complete(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		upstreamStatus int
		wantStatus     string
		wantError      string
	}{
		{name: "success", wantStatus: StatusSuccess},
		{
			name:           "upstream failure",
			err:            errors.New("Requested entity was not found."),
			upstreamStatus: 404,
			wantStatus:     StatusError,
			wantError:      "Requested entity was not found.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewDispatchRecord(APITasks, "delete_task").Complete(tt.err, tt.upstreamStatus)

			assert.Equal(t, tt.wantStatus, r.Status())
			assert.Equal(t, tt.wantError, r.Error)
			assert.Equal(t, tt.upstreamStatus, r.UpstreamStatus)
			assert.GreaterOrEqual(t, r.Duration.Nanoseconds(), int64(0))
		})
	}
}

func TestDispatchRecord_LogAttrs(t *testing.T) {
	r := NewDispatchRecord(APISheets, "append_stock").
		WithSession(testSession).
		WithBackend("google").
		WithResource("sheet-1").
		Complete(nil, 0)

	keys := func(attrs []slog.Attr) map[string]bool {
		out := make(map[string]bool)
		for _, a := range attrs {
			out[a.Key] = true
		}
		return out
	}

	withResource := keys(r.LogAttrs(true))
	assert.True(t, withResource["resource"])
	assert.True(t, withResource["session"])
	assert.True(t, withResource["backend"])
	assert.False(t, withResource["error"])
	assert.False(t, withResource["upstream_status"])

	assert.False(t, keys(r.LogAttrs(false))["resource"])
}

func TestDispatchRecord_WithSpanContext(t *testing.T) {
	withRecorder(t)

	ctx, span := StartUpstreamSpan(context.Background(), APITasks, "list_tasks")
	defer span.End()

	r := NewDispatchRecord(APITasks, "list_tasks").WithSpanContext(ctx)
	assert.Equal(t, GetTraceID(ctx), r.TraceID)
	assert.Equal(t, GetSpanID(ctx), r.SpanID)

	empty := NewDispatchRecord(APITasks, "list_tasks").WithSpanContext(context.Background())
	assert.Empty(t, empty.TraceID)
}

func TestAuditLogger_LogDispatch(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	al := NewAuditLogger(logger, AuditConfig{Enabled: true})

	al.LogDispatch(context.Background(), NewDispatchRecord(APICalendar, "list_events").
		WithSession(testSession).
		Complete(errors.New("boom"), 403))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dispatch_failed", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, testSession, line["session"])
	assert.Equal(t, float64(403), line["upstream_status"])
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)), AuditConfig{Enabled: false})
	al.LogDispatch(context.Background(), NewDispatchRecord(APITasks, "list_task_lists").Complete(nil, 0))
	assert.Empty(t, buf.String())

	var nilLogger *AuditLogger
	assert.NotPanics(t, func() {
		nilLogger.LogDispatch(context.Background(), NewDispatchRecord(APITasks, "x"))
	})
}
