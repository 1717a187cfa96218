package response

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends an error response. message is shown to the client as is, so it
// must never carry internal details.
func Error(w http.ResponseWriter, status int, message string) {
	errorType := "error"
	switch status {
	case http.StatusNotFound:
		errorType = "not_found"
	case http.StatusBadRequest:
		errorType = "bad_request"
	case http.StatusRequestEntityTooLarge:
		errorType = "request_too_large"
	case http.StatusInternalServerError:
		errorType = "internal_server_error"
	}

	JSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}
