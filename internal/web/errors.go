package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tmendes/orderimport/internal/logging"
)

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out, nothing left to do but log.
		slog.Error("encode response", "error", err)
	}
}

// respondError writes a JSON error reply and logs server-side failures.
func respondError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error(msg, "error", err, "status", status)
	} else if err != nil {
		logging.FromContext(r.Context()).Debug(msg, "error", err, "status", status)
	}
	respondJSON(w, status, errorResponse{Error: msg})
}
