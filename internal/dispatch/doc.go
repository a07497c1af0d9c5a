// Package dispatch turns one authenticated proxy request into exactly one
// upstream call.
//
// A Request names an Operation and carries its Params. The Gateway checks,
// in order, that the session holds a token set, that the parameters the
// operation needs are present and that the client credential is configured.
// Only then does it hand the request to a Backend.
//
// Two backends exist:
//   - GoogleBackend calls Tasks, Calendar, Search Console and Sheets through
//     the google-api-go clients, with a client built per call from the live
//     credential and the session's token set.
//   - WebhookBackend posts the request to a workflow engine webhook that
//     performs the Google call and answers with the JSON to forward.
//
// Upstream failures become apierror UpstreamCallFailure errors keeping the
// upstream status and message. Every dispatched call is traced, counted and
// written to the audit log.
package dispatch
