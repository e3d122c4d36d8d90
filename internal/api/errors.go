package api

import (
	"encoding/json"
	"net/http"

	"taxsun/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes err as JSON with the status its code maps to.
func WriteError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(code),
	}

	var e *errors.Error
	if errors.As(err, &e) {
		resp.Details = e.Details
		resp.SuggestedFixes = e.SuggestedFixes
	}

	WriteJSON(w, resp, MapErrorToStatus(code))
}

// MapErrorToStatus maps taxsun error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.UnknownIdentifier, errors.MalformedRecord, errors.InvalidRequest:
		return http.StatusBadRequest // 400
	case errors.NameNotFound:
		return http.StatusNotFound // 404
	case errors.UploadTooLarge:
		return http.StatusRequestEntityTooLarge // 413
	case errors.TaxonomyUnavailable:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeRawJSON writes an already encoded JSON body.
func writeRawJSON(w http.ResponseWriter, body []byte, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.InvalidRequest, message, nil))
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string, err error) {
	WriteError(w, errors.New(errors.InternalError, message, err))
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
