package web

import (
	"encoding/json"
	"net/http"

	"purchasing-engine/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeDomainError maps a domain error kind to an HTTP status. Unknown
// kinds are treated as internal errors so storage failures never leak
// SQL details with a 4xx.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case core.KindValidation, core.KindReasonRequired:
		status = http.StatusBadRequest
	case core.KindInvalidTransition, core.KindOverReceipt, core.KindOverReturn, core.KindUnknownLineItem:
		status = http.StatusUnprocessableEntity
	case core.KindOrderNotFound, core.KindDeviceNotFound, core.KindTemplateNotFound:
		status = http.StatusNotFound
	case core.KindOrderTerminal, core.KindConcurrentModification:
		status = http.StatusConflict
	case core.KindDependencyFailure:
		status = http.StatusBadGateway
	}

	message := err.Error()
	code := string(kind)
	if kind == "" {
		message = "internal server error"
		code = "INTERNAL_ERROR"
	}
	writeError(w, r, message, code, status)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONStatus writes a JSON response with an explicit status code.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
