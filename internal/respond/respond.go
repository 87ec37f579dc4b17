// Package respond writes the JSON envelope shared by every endpoint:
// {success, message, data, errors}.
package respond

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// Invalid reports per-field validation failures as 422.
func Invalid(w http.ResponseWriter, message string, fields map[string]string) {
	JSON(w, http.StatusUnprocessableEntity, Envelope{Success: false, Message: message, Errors: fields})
}

func Unauthorized(w http.ResponseWriter) {
	Fail(w, http.StatusUnauthorized, "Unauthorized")
}

func Internal(w http.ResponseWriter) {
	Fail(w, http.StatusInternalServerError, "internal error")
}
