package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/teemow/safegate/internal/apierror"
	"github.com/teemow/safegate/internal/instrumentation"
	"github.com/teemow/safegate/internal/logging"
	"github.com/teemow/safegate/internal/session"
)

const (
	notConfiguredHint  = "GOOGLE_CLIENT_ID et GOOGLE_CLIENT_SECRET manquants. Configurez via /admin/config"
	loggedOutMessage   = "Déconnecté"
	configUpdatedMsg   = "Configuration mise à jour"
	healthStatusLegacy = "OK"

	// isoMillis matches the timestamps the front-end already parses.
	isoMillis = "2006-01-02T15:04:05.000Z07:00"

	maxBodyBytes = 1 << 20
)

// AuthURLResponse is the body of GET /auth/url.
type AuthURLResponse struct {
	URL string `json:"url"`
}

// AuthStatusResponse is the body of GET /auth/status.
type AuthStatusResponse struct {
	Connected        bool `json:"connected"`
	GoogleConfigured bool `json:"googleConfigured"`
}

// ConfigRequest is the body of POST /admin/config. SESSION_SECRET is
// accepted for compatibility and ignored: session ids are random and need no
// signing key.
type ConfigRequest struct {
	ClientID      string `json:"GOOGLE_CLIENT_ID"`
	ClientSecret  string `json:"GOOGLE_CLIENT_SECRET"`
	SessionSecret string `json:"SESSION_SECRET,omitempty"`
}

// ConfigUpdatedResponse is the body of a successful POST /admin/config.
type ConfigUpdatedResponse struct {
	Message          string `json:"message"`
	GoogleConfigured bool   `json:"googleConfigured"`
}

// ConfigStatusResponse is the body of GET /admin/config/status. It never
// carries the client secret.
type ConfigStatusResponse struct {
	GoogleConfigured bool   `json:"googleConfigured"`
	FrontendURL      string `json:"frontendUrl"`
	RedirectURI      string `json:"redirectUri"`
}

// HealthStatusResponse is the body of GET /health.
type HealthStatusResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	GoogleConfigured bool   `json:"googleConfigured"`
	FrontendURL      string `json:"frontendUrl"`
}

func (s *Server) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	authURL, err := s.auth.AuthorizationURL()
	if err != nil {
		if apierror.Is(err, apierror.KindNotConfigured) {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:   apierror.MsgNotConfigured,
				Message: notConfiguredHint,
			})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthURLResponse{URL: authURL})
}

// handleAuthCallback is reached by a browser navigation, so failures are
// plain text and success redirects to the front-end.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := session.IDFromContext(ctx)

	if _, err := s.auth.CompleteAuthorization(ctx, id, r.URL.Query().Get("code")); err != nil {
		apiErr := apierror.As(err)
		s.logger.Warn("authorization callback failed",
			logging.SessionHash(id),
			slog.String("kind", string(apiErr.Kind)),
			logging.Err(err))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(apiErr.Status)
		_, _ = io.WriteString(w, apiErr.Message)
		return
	}

	http.Redirect(w, r, s.frontendURL, http.StatusFound)
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := s.auth.Status(ctx, session.IDFromContext(ctx))
	writeJSON(w, http.StatusOK, AuthStatusResponse{
		Connected:        status.Connected,
		GoogleConfigured: s.credentials.IsConfigured(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.auth.Logout(ctx, session.IDFromContext(ctx))
	// Replace the refreshed cookie set by withSession.
	w.Header().Del("Set-Cookie")
	http.SetCookie(w, s.cookie.Expired())
	writeJSON(w, http.StatusOK, MessageResponse{Message: loggedOutMessage})
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.logger.Debug("invalid configuration body", logging.Err(err))
		s.writeError(w, r, apierror.ErrInvalidParameter("corps JSON invalide"))
		return
	}

	if err := s.credentials.Configure(req.ClientID, req.ClientSecret); err != nil {
		s.metrics.RecordCredentialUpdate(r.Context(), instrumentation.StatusError)
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordCredentialUpdate(r.Context(), instrumentation.StatusSuccess)

	writeJSON(w, http.StatusOK, ConfigUpdatedResponse{
		Message:          configUpdatedMsg,
		GoogleConfigured: true,
	})
}

func (s *Server) handleConfigStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ConfigStatusResponse{
		GoogleConfigured: s.credentials.IsConfigured(),
		FrontendURL:      s.frontendURL,
		RedirectURI:      s.credentials.RedirectURI(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatusResponse{
		Status:           healthStatusLegacy,
		Timestamp:        s.now().UTC().Format(isoMillis),
		GoogleConfigured: s.credentials.IsConfigured(),
		FrontendURL:      s.frontendURL,
	})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// untouched and is not an error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
