// Package google builds the OAuth2 configuration and per-call HTTP clients
// used to reach Google APIs on behalf of a browser session.
//
// Nothing in this package stores tokens. Callers pass the token set of the
// session for every call and get back a client that lives for that call only.
package google
