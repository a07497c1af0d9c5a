// Package auth implements the Google OAuth2 authorization-code flow of the
// gateway and exposes the per-session connection status.
//
// The oauth2 configuration is derived from the credential store and cached
// until the store's generation changes. A successful exchange overwrites the
// session's token set; scopes of earlier grants are not merged.
package auth
