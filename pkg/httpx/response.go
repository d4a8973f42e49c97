package httpx

import (
	"encoding/json"
	"net/http"
)

// Error codes shared by every rollcall endpoint.
const (
	CodeUnauthenticated    = "unauthenticated"
	CodeInvalidArgument    = "invalid-argument"
	CodePermissionDenied   = "permission-denied"
	CodeNotFound           = "not-found"
	CodeFailedPrecondition = "failed-precondition"
	CodeResourceExhausted  = "resource-exhausted"
	CodeInternal           = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// WriteJSON writes v with the given status. Responses carry bearer values,
// so they are never cacheable.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorBody.
func WriteError(w http.ResponseWriter, status int, code, desc string) {
	WriteJSON(w, status, ErrorBody{Error: code, ErrorDescription: desc})
}

func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
