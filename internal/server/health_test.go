package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/safegate/internal/credentials"
	"github.com/teemow/safegate/internal/session"
)

func serveHealth(t *testing.T, h http.Handler) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(nil, nil)
	h.SetReady(false)

	code, body := serveHealth(t, h.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthStatusOK, body["status"])
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name         string
		ready        bool
		shuttingDown bool
		wantCode     int
	}{
		{name: "ready", ready: true, wantCode: http.StatusOK},
		{name: "not ready", ready: false, wantCode: http.StatusServiceUnavailable},
		{name: "shutting down", ready: true, shuttingDown: true, wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(credentials.NewStore("", "", "", nil), nil)
			h.SetReady(tt.ready)
			if tt.shuttingDown {
				h.SetShuttingDown()
			}

			code, body := serveHealth(t, h.ReadinessHandler())
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantCode == http.StatusOK, h.IsReady())
			checks := body["checks"].(map[string]any)
			assert.Equal(t, credentialsNotConfigured, checks["credentials"], "missing credentials never fail readiness")
		})
	}
}

func TestNewHealthChecker_StartsNotReady(t *testing.T) {
	h := NewHealthChecker(nil, nil)
	assert.False(t, h.IsReady())

	code, body := serveHealth(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusNotReady, body["checks"].(map[string]any)["ready"])

	h.SetReady(true)
	assert.True(t, h.IsReady())
}

func TestDetailedHealthHandler(t *testing.T) {
	creds := credentials.NewStore("id", "secret", "", nil)
	sessions := session.NewStore(time.Hour, nil)
	sessions.Create(t.Context())
	sessions.Create(t.Context())

	h := NewHealthChecker(creds, sessions)
	code, body := serveHealth(t, h.DetailedHealthHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code, "not ready before the listener is bound")
	assert.Equal(t, healthStatusNotReady, body["status"])

	h.SetReady(true)
	code, body = serveHealth(t, h.DetailedHealthHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, credentialsConfigured, body["credentials"])
	assert.EqualValues(t, 2, body["activeSessions"])
	assert.NotEmpty(t, body["uptime"])

	h.SetShuttingDown()
	code, body = serveHealth(t, h.DetailedHealthHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusShuttingDown, body["status"])
}
