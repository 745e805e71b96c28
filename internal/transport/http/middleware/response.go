package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the handler error envelope so clients see one shape.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSONError writes an {error, details} response rejected before reaching a handler.
func writeJSONError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Details: details})
}
