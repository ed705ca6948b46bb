// Package handler implements the HTTP handlers of the wallet tracker API.
// Each handler declares the narrow service interface it depends on and is
// wired with concrete implementations by the server package.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError maps service errors to response codes: upstream HTTP
// failures surface as 502, everything else as 500.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		writeError(w, http.StatusBadGateway, upErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}
