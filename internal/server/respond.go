package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/teemow/safegate/internal/apierror"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is a JSON body made of a single message.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}

// writeError translates err into its HTTP status and an {error} body. Errors
// that are not gateway errors become a generic 500 so internals never leak.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierror.As(err)
	if apiErr.Kind == apierror.KindInternal {
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	writeJSON(w, apiErr.Status, ErrorResponse{Error: apiErr.Message})
}
