// Package render writes JSON responses. Every error response in the API
// shares the ErrorBody shape.
package render

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes message as an ErrorBody.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Message: message, Status: status})
}
