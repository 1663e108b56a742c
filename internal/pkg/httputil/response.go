package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/engagement-tracker/internal/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("httputil: JSON encode failed", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response with the given data.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Error writes a JSON error response. Use for client errors (4xx).
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// BadRequest writes a 400 error with a machine-readable code.
func BadRequest(w http.ResponseWriter, code, message string) {
	JSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: code})
}

// InternalError writes a 500 error. The real error is always logged; it is
// echoed to the client in Details only when exposeDetails is set
// (non-production runtimes).
func InternalError(w http.ResponseWriter, message string, err error, exposeDetails bool) {
	logger.Error("httputil: internal error", "message", message, "error", err)
	resp := ErrorResponse{Error: message}
	if exposeDetails && err != nil {
		resp.Details = err.Error()
	}
	JSON(w, http.StatusInternalServerError, resp)
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid_json", "invalid JSON: "+err.Error())
		return false
	}
	return true
}
