package api

import (
	"encoding/json"
	"net/http"
)

// MessageResponse is the body of every reservation response, success or failure.
type MessageResponse struct {
	Message string `json:"message"`
}

// RespondJSON writes v as JSON with the given status code.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondMessage writes {"message": msg}.
func RespondMessage(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, MessageResponse{Message: msg})
}

// RespondBadRequest writes msg with status 400. All reservation failures use it.
func RespondBadRequest(w http.ResponseWriter, msg string) {
	RespondMessage(w, http.StatusBadRequest, msg)
}
