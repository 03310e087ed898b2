// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/recstudio/internal/source"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeCaptureError maps a classified capture failure to a status code
// the client can act on.
func writeCaptureError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch source.ReasonOf(err) {
	case source.ReasonPermissionDenied:
		code = http.StatusForbidden
	case source.ReasonNoDevice:
		code = http.StatusNotFound
	case source.ReasonDeviceBusy:
		code = http.StatusConflict
	case source.ReasonInsecureContext:
		code = http.StatusBadRequest
	}
	writeJSON(w, code, map[string]string{
		"error":  err.Error(),
		"reason": string(source.ReasonOf(err)),
	})
}
