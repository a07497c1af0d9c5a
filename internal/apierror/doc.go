// Package apierror defines the failure taxonomy shared by the credential store,
// the OAuth session manager, the dispatch layer and the HTTP router.
//
// Every failure is an *Error carrying a Kind and the HTTP status the router
// answers with:
//
//   - NotConfigured: 500, no Google client credential
//   - Unauthenticated: 401, the session has no token set
//   - InvalidCredential, MissingCode, InvalidParameter: 400
//   - UpstreamAuthFailure, UpstreamCallFailure: 500, message passed through
//
// Errors that are not *Error are reported as a generic internal error.
package apierror
