// Package session keeps the per-browser state of the gateway.
//
// A Session is created on first browser contact and bound to the browser by an
// HttpOnly cookie holding an opaque id. It carries at most one OAuth2 token set.
// Sessions are evicted lazily after a fixed inactivity TTL (on read and on every
// Create), so the store runs no background goroutine. Nothing is persisted: a
// process restart loses every session and every browser has to authorize again.
package session
