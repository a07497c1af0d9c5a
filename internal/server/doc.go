// Package server is the browser-facing HTTP surface of the safegate gateway.
//
// Each route maps to one operation of the auth manager, the credential store
// or the dispatcher. The server extracts the session from its cookie, checks
// the parameters a route cannot run without and translates error kinds to
// HTTP statuses:
//
//	NotConfigured                      500
//	Unauthenticated                    401
//	InvalidCredential, MissingCode     400
//	InvalidParameter                   400
//	UpstreamAuthFailure                500
//	UpstreamCallFailure                500
//	anything else                      500 "Erreur serveur interne"
//
// Failed API calls answer {"error": message}.
//
// # Middleware
//
// From the outside in: OpenTelemetry server spans, panic recovery, CORS for
// the front-end origins, the session cookie, then request logging and the
// http_requests_total and http_request_duration_seconds metrics. The
// credential and callback endpoints are rate limited per client IP.
//
// Kubernetes health checks (/healthz, /readyz, /healthz/detailed) are served outside
// the session layer so they never create sessions. MetricsServer exposes
// Prometheus metrics on a separate port.
package server
