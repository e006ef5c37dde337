package web

// errors.go centralizes error responses: the technical error is logged
// server-side with the request ID, the client gets a user-friendly message
// with a support code.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nexcrm/importer/internal/importer"
	"github.com/nexcrm/importer/internal/logging"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// respondError logs the technical error and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := importer.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:  userMsg.Message,
		Action: userMsg.Action,
		Code:   userMsg.Code,
	})
}

// respondJSON writes v as a JSON response body.
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// statusForError picks the HTTP status for a pipeline error.
func statusForError(err error) int {
	var te *importer.TransitionError
	switch {
	case errors.Is(err, importer.ErrEmptySource), errors.Is(err, importer.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrSourceTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, importer.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, importer.ErrNoValidRecords):
		return http.StatusUnprocessableEntity
	case errors.As(err, &te):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
