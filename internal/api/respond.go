// internal/api/respond.go
//
// JSON envelope helpers.
//
// Context
// -------
// Every response is a JSON object with a boolean `success`.  Failures add
// a human-readable `message`, an `errors` list for validation problems,
// and, only when the service runs with `env: development`, an `error`
// string carrying the internal detail.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/yanizio/inbox/internal/logger"
)

// failure is the error envelope.
type failure struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// writeJSON answers status with payload.  The header is already sent when
// encoding fails, so the failure is only logged.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.FromContext(r.Context()).Debugw("write response", "status", status, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, failure{Message: msg})
}

// writeInternal logs err and answers status with msg.  The detail reaches
// the client only in development.
func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	logger.FromContext(r.Context()).Errorw(msg, "path", r.URL.Path, "err", err)
	body := failure{Message: msg}
	if s.dev && err != nil {
		body.Error = err.Error()
	}
	writeJSON(w, r, status, body)
}
