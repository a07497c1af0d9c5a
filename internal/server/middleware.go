package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/felixge/httpsnoop"

	"github.com/teemow/safegate/internal/apierror"
	"github.com/teemow/safegate/internal/instrumentation"
	"github.com/teemow/safegate/internal/logging"
	"github.com/teemow/safegate/internal/session"
)

const (
	corsAllowedMethods = "GET, HEAD, PUT, PATCH, POST, DELETE"
	corsMaxAge         = "86400"
)

// recoverPanics turns a panic into a generic 500 response.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("panic while serving request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: apierror.MsgInternal})
		}()
		next.ServeHTTP(w, r)
	})
}

// observe logs every request and records the HTTP metrics. It must wrap the
// mux directly so the matched route pattern is visible once the handler
// returns.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		route := instrumentation.RouteLabel(r.Pattern)

		s.metrics.RecordHTTPRequest(r.Context(), r.Method, route, m.Code, m.Duration)

		level := slog.LevelDebug
		if m.Code >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", m.Code),
			slog.Duration("duration", m.Duration),
			slog.Int64("bytes", m.Written),
		}
		if id := session.IDFromContext(r.Context()); id != "" {
			attrs = append(attrs, logging.SessionHash(id))
		}
		if traceID := instrumentation.GetTraceID(r.Context()); traceID != "" {
			attrs = append(attrs, slog.String("trace_id", traceID))
		}
		s.logger.LogAttrs(r.Context(), level, "http request", attrs...)
	})
}

// withSession binds the request to a browser session, creating one on first
// contact or when the cookie names an unknown or expired session. The cookie
// is re-issued on every request so its Max-Age slides with the server-side
// TTL.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := s.cookie.IDFromRequest(r)
		if _, ok := s.sessions.Get(ctx, id); id == "" || !ok {
			id = s.sessions.Create(ctx).ID
		}
		http.SetCookie(w, s.cookie.Cookie(id))
		next.ServeHTTP(w, r.WithContext(session.WithID(ctx, id)))
	})
}

// cors lets the configured front-end origins call the API with credentials.
// Requests from other origins get no CORS headers and are blocked by the
// browser.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed := s.isAllowedOrigin(origin)
		if allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				}
				h.Set("Access-Control-Max-Age", corsMaxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) isAllowedOrigin(origin string) bool {
	origin = strings.TrimSuffix(origin, "/")
	for _, o := range s.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
