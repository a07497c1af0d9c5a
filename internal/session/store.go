package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/safegate/internal/instrumentation"
	"github.com/teemow/safegate/internal/logging"
)

// DefaultTTL matches the 24h cookie lifetime of the dashboard.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when a session id is unknown or has expired.
var ErrNotFound = errors.New("session not found")

// Session is a snapshot of the server-side state bound to one browser.
type Session struct {
	ID         string
	Tokens     *oauth2.Token
	CreatedAt  time.Time
	LastAccess time.Time
}

// Authenticated reports whether a token set is bound. Upstream validity is
// not checked; an expired token is discovered on the next dispatch.
func (s *Session) Authenticated() bool {
	return s != nil && s.Tokens != nil
}

type entry struct {
	tokens     *oauth2.Token
	createdAt  time.Time
	lastAccess time.Time
}

// Store maps session ids to token sets in memory. Sessions live as long as the
// process; a restart loses all of them. A session expires after TTL without access.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// NewStore creates an empty session store. A non-positive ttl uses DefaultTTL.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logging.WithService(logger, "session"),
	}
}

// SetMetrics sets the metrics recorder used for the active session gauge.
func (s *Store) SetMetrics(m *instrumentation.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// TTL returns the inactivity timeout after which a session is evicted.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create starts a new unauthenticated session. Expired sessions are swept first.
func (s *Store) Create(ctx context.Context) *Session {
	s.Sweep(ctx)

	now := s.now()
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = &entry{createdAt: now, lastAccess: now}
	metrics := s.metrics
	s.mu.Unlock()

	metrics.IncrementActiveSessions(ctx)
	s.logger.Debug("session created", logging.SessionHash(id))

	return &Session{ID: id, CreatedAt: now, LastAccess: now}
}

// Get returns the session for id and refreshes its last access time.
// An expired session is evicted and reported as missing.
func (s *Store) Get(ctx context.Context, id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	now := s.now()

	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if s.expired(e, now) {
		delete(s.sessions, id)
		metrics := s.metrics
		s.mu.Unlock()
		metrics.DecrementActiveSessions(ctx)
		s.logger.Debug("session expired", logging.SessionHash(id))
		return nil, false
	}
	e.lastAccess = now
	sess := &Session{
		ID:         id,
		Tokens:     copyToken(e.tokens),
		CreatedAt:  e.createdAt,
		LastAccess: e.lastAccess,
	}
	s.mu.Unlock()

	return sess, true
}

// Tokens returns the token set bound to id, or nil when the session is
// missing, expired or unauthenticated.
func (s *Store) Tokens(ctx context.Context, id string) *oauth2.Token {
	sess, ok := s.Get(ctx, id)
	if !ok {
		return nil
	}
	return sess.Tokens
}

// SetTokens binds a token set to the session, replacing any previous one
// unconditionally. Scopes are not merged.
func (s *Store) SetTokens(ctx context.Context, id string, token *oauth2.Token) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || s.expired(e, now) {
		return ErrNotFound
	}
	e.tokens = copyToken(token)
	e.lastAccess = now

	s.logger.Debug("token set bound to session",
		logging.SessionHash(id),
		slog.Time("expiry", token.Expiry),
		slog.Bool("has_refresh_token", token.RefreshToken != ""))
	return nil
}

// Destroy removes a session and its token set. Destroying an unknown session
// is not an error.
func (s *Store) Destroy(ctx context.Context, id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	metrics := s.metrics
	s.mu.Unlock()

	if ok {
		metrics.DecrementActiveSessions(ctx)
		s.logger.Debug("session destroyed", logging.SessionHash(id))
	}
}

// Sweep evicts every expired session and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) int {
	now := s.now()

	s.mu.RLock()
	var expired []string
	for id, e := range s.sessions {
		if s.expired(e, now) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	s.mu.Lock()
	removed := 0
	for _, id := range expired {
		// Re-check under the write lock, the session may have been touched since.
		if e, ok := s.sessions[id]; ok && s.expired(e, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics := s.metrics
	s.mu.Unlock()

	for i := 0; i < removed; i++ {
		metrics.DecrementActiveSessions(ctx)
	}
	if removed > 0 {
		s.logger.Info("cleaned up expired sessions", slog.Int("count", removed))
	}
	return removed
}

// Len returns the number of sessions currently held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return now.Sub(e.lastAccess) > s.ttl
}

func copyToken(t *oauth2.Token) *oauth2.Token {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
