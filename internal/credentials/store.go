package credentials

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/teemow/safegate/internal/apierror"
	"github.com/teemow/safegate/internal/logging"
)

// Credential is the Google OAuth client identity. It is always handled by value.
type Credential struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Configured reports whether both the client id and secret are set.
func (c Credential) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// snapshot is the immutable cell swapped on every Configure call.
type snapshot struct {
	cred       Credential
	generation uint64
}

// Store holds the single live Credential of the process.
// Readers get either the old or the new value, never a mix of both.
type Store struct {
	current     atomic.Pointer[snapshot]
	redirectURI string
	logger      *slog.Logger
}

// NewStore creates a store with a fixed redirect URI. clientID and clientSecret
// may be empty, in which case the store starts unconfigured.
func NewStore(clientID, clientSecret, redirectURI string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		redirectURI: redirectURI,
		logger:      logging.WithService(logger, "credentials"),
	}
	s.current.Store(&snapshot{
		cred: Credential{
			ClientID:     strings.TrimSpace(clientID),
			ClientSecret: strings.TrimSpace(clientSecret),
			RedirectURI:  redirectURI,
		},
	})
	return s
}

// Configure replaces the live credential. It fails with InvalidCredential when
// either field is empty and leaves the previous value untouched in that case.
func (s *Store) Configure(clientID, clientSecret string) error {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return apierror.ErrInvalidCredential()
	}

	for {
		old := s.current.Load()
		next := &snapshot{
			cred: Credential{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURI:  s.redirectURI,
			},
			generation: old.generation + 1,
		}
		if s.current.CompareAndSwap(old, next) {
			s.logger.Info("google client credential updated",
				slog.String("client_id", logging.TruncateID(clientID)),
				slog.Uint64("generation", next.generation))
			return nil
		}
	}
}

// IsConfigured reports whether a usable credential is live.
func (s *Store) IsConfigured() bool {
	return s.current.Load().cred.Configured()
}

// Current returns a copy of the live credential.
func (s *Store) Current() Credential {
	return s.current.Load().cred
}

// Generation increases by one on every successful Configure. Consumers caching
// state derived from the credential compare generations to know when to rebuild.
func (s *Store) Generation() uint64 {
	return s.current.Load().generation
}

// Snapshot returns the credential together with its generation, read atomically.
func (s *Store) Snapshot() (Credential, uint64) {
	snap := s.current.Load()
	return snap.cred, snap.generation
}

// RedirectURI returns the redirect URI fixed at process start.
func (s *Store) RedirectURI() string {
	return s.redirectURI
}
