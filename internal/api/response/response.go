package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Message is the {"message": ...} body used by the webhook and register-call endpoints
type Message struct {
	Message string `json:"message"`
}

// Error is the {"error": ...} body used by the create-web-call endpoint
type Error struct {
	Error string `json:"error"`
}

// RespondMessage writes a {"message": ...} response
func RespondMessage(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, Message{Message: message})
}

// RespondErrorMessage writes an {"error": ...} response
func RespondErrorMessage(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, Error{Error: message})
}

// RespondUnauthorized writes a 401 {"message":"Unauthorized"} response
func RespondUnauthorized(w http.ResponseWriter) {
	RespondMessage(w, http.StatusUnauthorized, "Unauthorized")
}

// RespondInternalServerError writes a 500 {"message":"Internal Server Error"} response
func RespondInternalServerError(w http.ResponseWriter) {
	RespondMessage(w, http.StatusInternalServerError, "Internal Server Error")
}

// RespondJSON writes a JSON response directly without wrapping
func RespondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// RespondRawJSON writes an already-encoded JSON body unchanged
func RespondRawJSON(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// RespondEmpty writes a status line with no body
func RespondEmpty(w http.ResponseWriter, statusCode int) {
	w.WriteHeader(statusCode)
}
