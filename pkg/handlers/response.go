package handlers

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes data as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes the error body shape shared by every handler:
// a machine-readable code plus a human-readable message.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
