package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/safegate/internal/apierror"
	"github.com/teemow/safegate/internal/credentials"
	"github.com/teemow/safegate/internal/google"
	"github.com/teemow/safegate/internal/instrumentation"
	"github.com/teemow/safegate/internal/logging"
	"github.com/teemow/safegate/internal/session"
)

// Status is what the dashboard learns about its session.
type Status struct {
	Connected bool `json:"connected"`
}

// Config holds the collaborators of a Manager.
type Config struct {
	Credentials *credentials.Store
	Sessions    *session.Store

	// Endpoint overrides Google's OAuth2 endpoint. Zero means Google.
	Endpoint oauth2.Endpoint

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Manager runs the authorization-code flow and binds the resulting token sets
// to browser sessions.
type Manager struct {
	creds    *credentials.Store
	sessions *session.Store
	endpoint oauth2.Endpoint
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	mu        sync.Mutex
	conf      *oauth2.Config
	confGen   uint64
	confValid bool
}

// NewManager creates a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Credentials == nil {
		return nil, errors.New("credential store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		creds:    cfg.Credentials,
		sessions: cfg.Sessions,
		endpoint: cfg.Endpoint,
		logger:   logging.WithService(logger, "auth"),
		metrics:  cfg.Metrics,
	}, nil
}

// OAuthConfig returns the oauth2 configuration for the live credential. It is
// rebuilt whenever the credential store generation moves, so a credential
// replaced through the admin endpoint applies to the next call.
func (m *Manager) OAuthConfig() (*oauth2.Config, error) {
	cred, gen := m.creds.Snapshot()
	if !cred.Configured() {
		return nil, apierror.ErrNotConfigured()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.confValid || m.confGen != gen {
		m.conf = google.NewOAuthConfig(cred, m.endpoint)
		m.confGen = gen
		m.confValid = true
		m.logger.Debug("oauth client rebuilt", slog.Uint64("generation", gen))
	}
	return m.conf, nil
}

// AuthorizationURL returns the Google consent URL for the closed scope set,
// requesting offline access and incremental authorization.
func (m *Manager) AuthorizationURL() (string, error) {
	conf, err := m.OAuthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL("", google.AuthCodeOptions()...), nil
}

// CompleteAuthorization exchanges code for a token set and binds it to the
// session, replacing any previous one. Checks run in a fixed order: a missing
// code fails before the credential is even looked at.
func (m *Manager) CompleteAuthorization(ctx context.Context, sessionID, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, apierror.ErrMissingCode()
	}

	conf, err := m.OAuthConfig()
	if err != nil {
		m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultNotConfigured)
		return nil, err
	}

	ctx, span := instrumentation.StartSpan(ctx, "oauth.exchange")
	defer span.End()

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		m.logger.Warn("authorization code exchange failed",
			logging.SessionHash(sessionID),
			logging.Err(err))
		return nil, apierror.ErrUpstreamAuthFailure(exchangeError(err))
	}

	if err := m.sessions.SetTokens(ctx, sessionID, token); err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to bind token set: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	m.logger.Info("session authorized",
		logging.SessionHash(sessionID),
		slog.Bool("has_refresh_token", token.RefreshToken != ""),
		slog.Any("scope", token.Extra("scope")))

	return token, nil
}

// Status reports whether the session holds a token set. Upstream validity is
// not checked.
func (m *Manager) Status(ctx context.Context, sessionID string) Status {
	return Status{Connected: m.sessions.Tokens(ctx, sessionID) != nil}
}

// Logout destroys the session. Logging out twice is not an error.
func (m *Manager) Logout(ctx context.Context, sessionID string) {
	m.sessions.Destroy(ctx, sessionID)
	m.logger.Info("session logged out", logging.SessionHash(sessionID))
}

// exchangeFailure shows Google's reason for a rejected exchange while keeping
// the oauth2 error reachable through Unwrap.
type exchangeFailure struct {
	reason string
	err    error
}

func (e *exchangeFailure) Error() string { return e.reason }
func (e *exchangeFailure) Unwrap() error { return e.err }

// exchangeError reduces an oauth2 exchange error to the description or code
// sent by Google. Other errors are returned unchanged.
func exchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch {
		case re.ErrorDescription != "":
			return &exchangeFailure{reason: re.ErrorDescription, err: err}
		case re.ErrorCode != "":
			return &exchangeFailure{reason: re.ErrorCode, err: err}
		}
	}
	return err
}
