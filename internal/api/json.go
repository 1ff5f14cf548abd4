package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// writeResult writes an operation result: 200 on success, otherwise the
// status mapped from the failure. The structured body is kept either way.
func writeResult(w http.ResponseWriter, success bool, err error, v any) {
	if success {
		writeJSON(w, http.StatusOK, v)
		return
	}
	writeJSON(w, statusFor(err), v)
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
