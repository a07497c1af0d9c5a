package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure. Every Kind maps to exactly one HTTP status.
type Kind string

const (
	KindNotConfigured       Kind = "not_configured"
	KindUnauthenticated     Kind = "unauthenticated"
	KindInvalidCredential   Kind = "invalid_credential"
	KindMissingCode         Kind = "missing_code"
	KindInvalidParameter    Kind = "invalid_parameter"
	KindUpstreamAuthFailure Kind = "upstream_auth_failure"
	KindUpstreamCallFailure Kind = "upstream_call_failure"
	KindInternal            Kind = "internal"
)

// Messages shown to the dashboard. They are part of the HTTP contract.
const (
	MsgNotConfigured     = "OAuth non configuré"
	MsgUnauthenticated   = "Non authentifié"
	MsgInvalidCredential = "CLIENT_ID et CLIENT_SECRET requis"
	MsgMissingCode       = "Code manquant"
	MsgInternal          = "Erreur serveur interne"
)

// Error is the single error type crossing component boundaries in the gateway.
type Error struct {
	Kind    Kind
	Message string // safe to return to the caller
	Status  int    // HTTP status at the gateway boundary

	// UpstreamStatus is the status code reported by the upstream API, if any.
	UpstreamStatus int

	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new gateway error
func New(kind Kind, message string, status int, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Status:  status,
		Err:     cause,
	}
}

var (
	// ErrNotConfigured indicates the Google client credential is missing
	ErrNotConfigured = func() *Error {
		return New(KindNotConfigured, MsgNotConfigured, http.StatusInternalServerError, nil)
	}

	// ErrUnauthenticated indicates the session has no bound token set
	ErrUnauthenticated = func() *Error {
		return New(KindUnauthenticated, MsgUnauthenticated, http.StatusUnauthorized, nil)
	}

	// ErrInvalidCredential indicates an empty client id or secret
	ErrInvalidCredential = func() *Error {
		return New(KindInvalidCredential, MsgInvalidCredential, http.StatusBadRequest, nil)
	}

	// ErrMissingCode indicates the callback carried no authorization code
	ErrMissingCode = func() *Error {
		return New(KindMissingCode, MsgMissingCode, http.StatusBadRequest, nil)
	}

	// ErrInvalidParameter indicates a required request parameter is missing or malformed
	ErrInvalidParameter = func(desc string) *Error {
		return New(KindInvalidParameter, desc, http.StatusBadRequest, nil)
	}

	// ErrUpstreamAuthFailure indicates Google rejected the code exchange
	ErrUpstreamAuthFailure = func(cause error) *Error {
		return New(KindUpstreamAuthFailure, "Authentication failed: "+causeMessage(cause), http.StatusInternalServerError, cause)
	}

	// ErrUpstreamCallFailure indicates Google (or the webhook) rejected a dispatched call.
	// The upstream message is passed through verbatim.
	ErrUpstreamCallFailure = func(upstreamStatus int, message string, cause error) *Error {
		e := New(KindUpstreamCallFailure, message, http.StatusInternalServerError, cause)
		e.UpstreamStatus = upstreamStatus
		return e
	}
)

func causeMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// As extracts a *Error from err. Any other error becomes a generic internal
// error whose message never leaks the cause.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(KindInternal, MsgInternal, http.StatusInternalServerError, err)
}

// Is reports whether err is a gateway error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
