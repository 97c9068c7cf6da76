package portal

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Domain errors for the portal package.
var (
	// ErrNotStarted is returned when an operation needs a running server.
	ErrNotStarted = errors.New("portal: server not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("portal: server already started")

	// ErrInvalidHash is returned when a stored password hash cannot be parsed.
	ErrInvalidHash = errors.New("portal: invalid password hash")
)

// apiError represents a structured error response.
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used in responses.
const (
	errCodeBadRequest   = "bad_request"
	errCodeNotFound     = "not_found"
	errCodeUnauthorized = "unauthorised"
	errCodeValidation   = "validation_error"
	errCodeUnavailable  = "unavailable"
	errCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{
		Status:  status,
		Code:    code,
		Message: message,
	})
}
