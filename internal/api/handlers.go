// internal/api/handlers.go
//
// Handlers for login, submission, and retrieval.
//
// Context
// -------
// Handlers translate between HTTP and the domain packages.  They never
// talk to the database directly; everything goes through message.Store.
// Validation and auth failures are rendered here as structured JSON.
// Persistence failures are logged and rendered as a generic 500.
//
// Submission order of checks:
//
//   1. Body decodes as JSON                      – else 400 "Invalid JSON body"
//   2. name, email, subject, message non-empty   – else 400 "All fields are required…"
//   3. source defaults to the primary domain
//   4. field rules plus the registry policy      – else 400 "Validation error"
//   5. Store.Create                              – else 500

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/inbox/internal/auth"
	"github.com/yanizio/inbox/internal/logger"
	"github.com/yanizio/inbox/internal/message"
	"github.com/yanizio/inbox/internal/metrics"
	"github.com/yanizio/inbox/internal/requestinfo"
)

const (
	msgMissingFields = "All fields are required: name, email, subject, message"
	msgInvalidJSON   = "Invalid JSON body"
	msgTooLarge      = "Request body too large"
	msgValidation    = "Validation error"
	msgSaved         = "Message received and saved successfully"
	msgSaveFailed    = "An error occurred while saving the message"
	msgFetchFailed   = "An error occurred while fetching messages"
	msgBadPassword   = "Invalid password"
	msgTokenFailed   = "An error occurred while issuing the token"
)

// unknownSourceLabel groups unregistered sources in the created counter.
const unknownSourceLabel = "unknown"


// errBodyTooLarge marks a body that hit MaxBodyBytes.
var errBodyTooLarge = errors.New("request body too large")

// decodeJSON reads one JSON value from the capped body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errBodyTooLarge
		}
		return err
	}
	return nil
}

// writeDecodeError renders a failed decodeJSON.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}
	writeError(w, r, http.StatusBadRequest, msgInvalidJSON)
}

//
// ── Login ──────────────────────────────────────────────────────────────
//

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	token, err := s.issuer.Login(req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		logger.FromContext(r.Context()).Warnw("admin login failed", "ip", clientIP(r))
		writeError(w, r, http.StatusUnauthorized, msgBadPassword)
		return
	case err != nil:
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		s.writeInternal(w, r, http.StatusInternalServerError, msgTokenFailed, err)
		return
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	logger.FromContext(r.Context()).Infow("admin login", "ip", clientIP(r))
	writeJSON(w, r, http.StatusOK, loginResponse{Success: true, Token: token})
}

//
// ── Submission ────────────────────────────────────────────────────────
//

type submitResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    *message.Message `json:"data"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var f message.Fields
	if err := decodeJSON(w, r, &f); err != nil {
		metrics.MessageRejectedTotal.WithLabelValues("bad_body").Inc()
		writeDecodeError(w, r, err)
		return
	}

	if f.Name == "" || f.Email == "" || f.Subject == "" || f.Body == "" {
		metrics.MessageRejectedTotal.WithLabelValues("missing_field").Inc()
		writeError(w, r, http.StatusBadRequest, msgMissingFields)
		return
	}

	f.Source = s.sources.Resolve(f.Source)

	errs := message.Validate(f)
	if f.Source != "" {
		if err := s.sources.Check(f.Source); err != nil {
			errs = append(errs, message.FieldError{
				Field:   "source",
				Message: fmt.Sprintf("source %q is not a registered portfolio", f.Source),
			})
		}
	}
	if len(errs) > 0 {
		s.rejectInvalid(w, r, errs)
		return
	}

	m, err := s.store.Create(r.Context(), f)
	if err != nil {
		var ve *message.ValidationError
		if errors.As(err, &ve) {
			s.rejectInvalid(w, r, ve.Fields)
			return
		}
		metrics.StoreErrorsTotal.WithLabelValues("create").Inc()
		s.writeInternal(w, r, http.StatusInternalServerError, msgSaveFailed, err)
		return
	}

	metrics.MessagesCreatedTotal.WithLabelValues(s.sourceLabel(m.Source)).Inc()
	fields := []any{"id", m.ID, "source", m.Source}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		fields = append(fields,
			"received_at", info.Timestamp,
			"country", info.CountryISO,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
			"bot", info.UA.IsBot,
		)
	}
	log.Infow("message stored", fields...)

	writeJSON(w, r, http.StatusCreated, submitResponse{Success: true, Message: msgSaved, Data: m})
}

// sourceLabel is the metric label for src.  Unregistered sources share
// one label so callers cannot mint new series.
func (s *Server) sourceLabel(src string) string {
	if s.sources.IsKnown(src) {
		return src
	}
	return unknownSourceLabel
}

func (s *Server) rejectInvalid(w http.ResponseWriter, r *http.Request, errs []message.FieldError) {
	metrics.MessageRejectedTotal.WithLabelValues("validation").Inc()
	ve := &message.ValidationError{Fields: errs}
	logger.FromContext(r.Context()).Infow("submission rejected", "errors", ve.Messages())
	writeJSON(w, r, http.StatusBadRequest, failure{Message: msgValidation, Errors: ve.Messages()})
}

//
// ── Retrieval (token required) ────────────────────────────────────────
//

type listResponse struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Source  string            `json:"source"`
	Data    []message.Message `json:"data"`
}

type sourcesResponse struct {
	Success bool     `json:"success"`
	Sources []string `json:"sources"`
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.writeMessages(w, r, r.URL.Query().Get("source"))
}

func (s *Server) listBySource(w http.ResponseWriter, r *http.Request) {
	// chi routes on RawPath when it is set, leaving the parameter escaped.
	// Otherwise the parameter comes from the decoded Path already.
	src := chi.URLParam(r, "source")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(src); err == nil {
			src = unescaped
		}
	}
	s.writeMessages(w, r, src)
}

func (s *Server) writeMessages(w http.ResponseWriter, r *http.Request, src string) {
	msgs, err := s.store.FindAll(r.Context(), message.Filter{Source: src})
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("find").Inc()
		s.writeInternal(w, r, http.StatusInternalServerError, msgFetchFailed, err)
		return
	}

	label := src
	if label == "" {
		label = "all"
	}
	writeJSON(w, r, http.StatusOK, listResponse{
		Success: true,
		Count:   len(msgs),
		Source:  label,
		Data:    msgs,
	})
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, sourcesResponse{Success: true, Sources: s.sources.List()})
}

// clientIP is the logged address for r.
func clientIP(r *http.Request) string {
	if info := requestinfo.FromContext(r.Context()); info != nil && info.IP != nil {
		return info.IP.String()
	}
	return requestinfo.ClientIP(r).String()
}
