package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the handler package's error shape. Middleware answers
// before any handler runs, so it writes the body itself.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}
