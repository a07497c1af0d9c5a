package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewSlogAdapter_WithNil(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	if adapter == nil {
		t.Fatal("NewSlogAdapter returned nil")
	}
	if adapter.logger == nil {
		t.Error("adapter.logger should not be nil when created with nil")
	}
}

func TestNewSlogAdapter_WithLogger(t *testing.T) {
	logger := slog.Default()
	adapter := NewSlogAdapter(logger)
	if adapter.logger != logger {
		t.Error("adapter should wrap the given logger")
	}
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(NewHandler(&buf, FormatText, true)))

	adapter.Debug("d", "key", "value")
	adapter.Info("i", "key", "value")
	adapter.Warn("w", "key", "value")
	adapter.Error("e", "key", "value")

	out := buf.String()
	for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		if !strings.Contains(out, "level="+level) {
			t.Errorf("expected a %s record in %q", level, out)
		}
	}
}

func TestSlogAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(NewHandler(&buf, FormatText, false)))

	adapter.With("api", "tasks").Info("dispatched")
	if !strings.Contains(buf.String(), "api=tasks") {
		t.Errorf("With attributes missing from %q", buf.String())
	}
}

func TestDefaultLogger(t *testing.T) {
	adapter := DefaultLogger()
	if adapter == nil || adapter.logger == nil {
		t.Fatal("DefaultLogger returned an unusable adapter")
	}
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
