// Package credentials holds the Google OAuth client identity of the gateway.
//
// Exactly one Credential is live per process. It can be replaced at runtime
// through the admin endpoint; the redirect URI is fixed at startup so it always
// matches the one registered with Google. The credential is never written to disk.
package credentials
