package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// MessageBody is the error payload returned by the API.
type MessageBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONMessage renders {"message": message}.
func JSONMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, MessageBody{Message: message})
}

// JSONError renders a message together with a machine-readable code.
func JSONError(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, MessageBody{Message: message, Code: code})
}

// WriteError renders err using its AppError status and message, or a
// generic 500 for anything else.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		message := appErr.Message
		if message == "" {
			message = http.StatusText(status)
		}
		JSONMessage(w, status, message)
		return
	}
	JSONMessage(w, http.StatusInternalServerError, "internal error")
}
