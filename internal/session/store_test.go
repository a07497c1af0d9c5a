package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, nil)
	s.now = clock.Now
	return s, clock
}

func testToken(access string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		TokenType:    "Bearer",
		Expiry:       time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC),
	}
}

func TestNewStore_DefaultTTL(t *testing.T) {
	s := NewStore(0, nil)
	assert.Equal(t, DefaultTTL, s.TTL())
}

func TestCreate_StartsUnauthenticated(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)

	sess := s.Create(ctx)
	require.NotEmpty(t, sess.ID)
	assert.False(t, sess.Authenticated())

	got, ok := s.Get(ctx, sess.ID)
	require.True(t, ok)
	assert.False(t, got.Authenticated())
	assert.Equal(t, 1, s.Len())
}

func TestCreate_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.Create(ctx).ID
		assert.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
}

func TestSetTokens_BindsAndOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)
	sess := s.Create(ctx)

	first := testToken("first").WithExtra(map[string]interface{}{"scope": "a b"})
	require.NoError(t, s.SetTokens(ctx, sess.ID, first))

	got := s.Tokens(ctx, sess.ID)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.AccessToken)
	assert.Equal(t, "a b", got.Extra("scope"))

	second := testToken("second")
	require.NoError(t, s.SetTokens(ctx, sess.ID, second))

	got = s.Tokens(ctx, sess.ID)
	assert.Equal(t, "second", got.AccessToken)
	assert.Nil(t, got.Extra("scope"), "scopes of a previous grant must not be merged")
}

func TestSetTokens_Errors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)

	assert.ErrorIs(t, s.SetTokens(ctx, "unknown", testToken("x")), ErrNotFound)

	sess := s.Create(ctx)
	assert.Error(t, s.SetTokens(ctx, sess.ID, nil))
}

func TestTokens_AreNotSharedAcrossSessions(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)
	a := s.Create(ctx)
	b := s.Create(ctx)

	require.NoError(t, s.SetTokens(ctx, a.ID, testToken("a")))

	assert.NotNil(t, s.Tokens(ctx, a.ID))
	assert.Nil(t, s.Tokens(ctx, b.ID))
}

func TestTokens_CallerCannotMutateStoredToken(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)
	sess := s.Create(ctx)

	tok := testToken("original")
	require.NoError(t, s.SetTokens(ctx, sess.ID, tok))
	tok.AccessToken = "mutated-by-caller"

	got := s.Tokens(ctx, sess.ID)
	got.AccessToken = "mutated-by-reader"

	assert.Equal(t, "original", s.Tokens(ctx, sess.ID).AccessToken)
}

func TestDestroy_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)
	sess := s.Create(ctx)
	require.NoError(t, s.SetTokens(ctx, sess.ID, testToken("x")))

	s.Destroy(ctx, sess.ID)
	_, ok := s.Get(ctx, sess.ID)
	assert.False(t, ok)
	assert.Nil(t, s.Tokens(ctx, sess.ID))

	assert.NotPanics(t, func() {
		s.Destroy(ctx, sess.ID)
		s.Destroy(ctx, "never-existed")
	})
	assert.Equal(t, 0, s.Len())
}

func TestGet_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(time.Hour)
	sess := s.Create(ctx)

	clock.Advance(59 * time.Minute)
	_, ok := s.Get(ctx, sess.ID)
	require.True(t, ok, "session should still be live before the TTL")

	// Access refreshed the idle timer.
	clock.Advance(59 * time.Minute)
	_, ok = s.Get(ctx, sess.ID)
	require.True(t, ok)

	clock.Advance(61 * time.Minute)
	_, ok = s.Get(ctx, sess.ID)
	assert.False(t, ok, "session should expire after TTL of inactivity")
	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, s.SetTokens(ctx, sess.ID, testToken("late")), ErrNotFound)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(time.Hour)

	old := s.Create(ctx)
	clock.Advance(30 * time.Minute)
	fresh := s.Create(ctx)

	clock.Advance(45 * time.Minute)
	assert.Equal(t, 1, s.Sweep(ctx))

	_, ok := s.Get(ctx, old.ID)
	assert.False(t, ok)
	_, ok = s.Get(ctx, fresh.ID)
	assert.True(t, ok)
	assert.Equal(t, 0, s.Sweep(ctx))
}

func TestCreate_SweepsExpiredSessions(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(time.Minute)

	for i := 0; i < 5; i++ {
		s.Create(ctx)
	}
	clock.Advance(2 * time.Minute)
	s.Create(ctx)

	assert.Equal(t, 1, s.Len())
}

func TestRestartLosesAllSessions(t *testing.T) {
	ctx := context.Background()
	before, _ := newTestStore(time.Hour)
	sess := before.Create(ctx)
	require.NoError(t, before.SetTokens(ctx, sess.ID, testToken("x")))

	// A new process starts with a fresh store and knows no session ids.
	after, _ := newTestStore(time.Hour)
	_, ok := after.Get(ctx, sess.ID)
	assert.False(t, ok)
	assert.Nil(t, after.Tokens(ctx, sess.ID))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := s.Create(ctx)
			_ = s.SetTokens(ctx, sess.ID, testToken(sess.ID))
			assert.Equal(t, sess.ID, s.Tokens(ctx, sess.ID).AccessToken)
			s.Destroy(ctx, sess.ID)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, s.Len())
}

func TestCookieConfig(t *testing.T) {
	cfg := CookieConfig{Secure: true, MaxAge: 24 * time.Hour}

	c := cfg.Cookie("abc")
	assert.Equal(t, DefaultCookieName, c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, 86400, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	expired := cfg.Expired()
	assert.Equal(t, -1, expired.MaxAge)
	assert.Empty(t, expired.Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, cfg.IDFromRequest(req))
	req.AddCookie(c)
	assert.Equal(t, "abc", cfg.IDFromRequest(req))

	custom := CookieConfig{Name: "sid"}
	assert.Equal(t, "sid", custom.Cookie("x").Name)
}

func TestContextID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, IDFromContext(ctx))
	assert.Equal(t, "abc", IDFromContext(WithID(ctx, "abc")))
}
