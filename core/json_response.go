// Package core provides the JSON response envelope and HTTP error taxonomy
// shared by all API modules.
package core

import (
	"encoding/json"
	"errors"
	"net/http"
)

// JSONResponse is the standard response structure.
type JSONResponse struct {
	Data  any          `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries machine- and human-readable error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// JSON writes data wrapped in the standard envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, JSONResponse{Data: data})
}

// JSONError writes err as a standard error envelope. HTTPError values keep
// their status and code; anything else becomes a 500 internal_error. The
// message is taken from the wrapped cause when present so callers can surface
// actionable text verbatim.
func JSONError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := &ErrorDetail{Code: "internal_error", Message: err.Error()}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		detail.Code = httpErr.Key
		// Keep the full error text when the HTTPError was wrapped with
		// context; fall back to the status text for bare sentinels.
		if err.Error() == httpErr.Key {
			detail.Message = http.StatusText(httpErr.Code)
		}
	}

	writeJSON(w, status, JSONResponse{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
