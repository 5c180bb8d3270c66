package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the body of every JSON response. Message carries the
// human-readable outcome the client shows to the user.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func SuccessMessage(w http.ResponseWriter, message string, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, message string, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{
		Success:   false,
		Message:   message,
		Error:     &Error{Code: code, Message: message},
		RequestID: requestID,
	})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{
		Success:   false,
		Message:   message,
		Error:     &Error{Code: code, Message: message, Details: details},
		RequestID: requestID,
	})
}

// Internal reports an infrastructure failure without leaking its cause.
func Internal(w http.ResponseWriter, r *http.Request, requestID, what string, err error) {
	slog.Error(what, "method", r.Method, "path", r.URL.Path, "requestId", requestID, "err", err)
	Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
}
