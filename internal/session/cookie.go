package session

import (
	"context"
	"net/http"
	"time"
)

// DefaultCookieName is the cookie carrying the opaque session id.
const DefaultCookieName = "safegate_session"

// CookieConfig controls how the session id travels to the browser.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Cookie builds the Set-Cookie value for a session id.
func (c CookieConfig) Cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     c.name(),
		Value:    id,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Expired builds a cookie that makes the browser drop the session id.
func (c CookieConfig) Expired() *http.Cookie {
	return &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IDFromRequest returns the session id carried by the request cookie, if any.
func (c CookieConfig) IDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

type contextKey struct{}

// WithID returns a context carrying the session id of the current request.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFromContext returns the session id stored by WithID.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
