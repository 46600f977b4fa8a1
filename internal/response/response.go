// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorEnvelope is the body of every 4xx/5xx JSON response.
type ErrorEnvelope struct {
	Error     string `json:"error" example:"File too large"`
	Message   string `json:"message,omitempty" example:"Maximum file size is 10MB"`
	RequestID string `json:"requestId,omitempty" example:"host/abcdef-000001"`
}

// UploadResult is the body of a successful upload.
type UploadResult struct {
	URL string `json:"url" example:"https://media.example.com/profiles/u123/0b9c1e4e-8d1f-4c4a-a1c2-3f5e6d7c8b9a.png"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes an error envelope with the given status.
func Error(w http.ResponseWriter, status int, errMsg, message string) {
	JSON(w, status, ErrorEnvelope{Error: errMsg, Message: message})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, errMsg, message string) {
	Error(w, http.StatusBadRequest, errMsg, message)
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, "Unauthorized", message)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, errMsg string) {
	Error(w, http.StatusNotFound, errMsg, "")
}

// MethodNotAllowed writes a 405 response.
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, "Method not allowed", "")
}

// InternalError writes a 500 response carrying the request id for correlation.
// The underlying error text is only included when expose is true.
func InternalError(w http.ResponseWriter, r *http.Request, errMsg string, err error, expose bool) {
	env := ErrorEnvelope{
		Error:     errMsg,
		RequestID: middleware.GetReqID(r.Context()),
	}
	if expose && err != nil {
		env.Message = err.Error()
	}
	JSON(w, http.StatusInternalServerError, env)
}
