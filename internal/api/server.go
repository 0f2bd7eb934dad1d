// internal/api/server.go
//
// Router and middleware chain for the inbox API.
//
// Context
// -------
// The chain, outermost first:
//
//   1. RequestID     – id + child logger in the request context
//   2. requestinfo   – client IP, UA, optional country
//   3. AccessLog     – one line per request
//   4. Recover       – panic → 500 envelope
//   5. Security      – response headers
//   6. ForceHTTPS    – optional 308 to https
//   7. CORS          – portfolio origin allow-list
//   8. Timeout       – per-request deadline
//
// Public routes: GET /, GET /healthz, GET /metrics, POST /api/login, and
// POST /api/messages.  Everything else under /api sits behind the token
// gate.
//
// Notes
// -----
//   • Request bodies are capped at 10 MiB.
//   • Unmatched paths get a 404 envelope, known paths with the wrong
//     method a 405 envelope.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/inbox/internal/auth"
	"github.com/yanizio/inbox/internal/message"
	"github.com/yanizio/inbox/internal/middleware"
	"github.com/yanizio/inbox/internal/requestinfo"
	"github.com/yanizio/inbox/internal/source"
)

// MaxBodyBytes caps a request body.
const MaxBodyBytes = 10 << 20

// Deps are the collaborators the router needs.  Issuer, Store, and
// Sources are required; the rest have usable zero values.
type Deps struct {
	Issuer   *auth.Issuer
	Store    message.Store
	Sources  *source.Registry
	Enricher *requestinfo.Enricher
	Logger   *zap.SugaredLogger
	Metrics  http.Handler // mounted at /metrics when non-nil

	Development    bool
	ForceHTTPS     bool
	AllowedOrigins []string
	RequestTimeout time.Duration
	CapturePanics  bool
}

// Server holds the handlers' shared state.
type Server struct {
	issuer  *auth.Issuer
	gate    *auth.Gate
	store   message.Store
	sources *source.Registry
	dev     bool
	pings   singleflight.Group
}

// NewRouter wires every route and middleware and returns the root handler.
func NewRouter(d Deps) http.Handler {
	s := &Server{
		issuer:  d.Issuer,
		gate:    auth.NewGate(d.Issuer),
		store:   d.Store,
		sources: d.Sources,
		dev:     d.Development,
	}

	log := d.Logger
	if log == nil {
		log = zap.S()
	}
	enricher := d.Enricher
	if enricher == nil {
		enricher = &requestinfo.Enricher{}
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(log),
		enricher.Middleware,
		middleware.AccessLog,
		middleware.Recover(d.CapturePanics, s.panicked),
		middleware.Security,
		middleware.ForceHTTPS(d.ForceHTTPS),
		middleware.CORS(d.AllowedOrigins),
		chimw.Timeout(timeout),
	)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", s.index)
	r.Get("/healthz", s.healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Post("/api/login", s.login)
	r.Post("/api/messages", s.submit)

	r.Group(func(r chi.Router) {
		r.Use(s.gate.Middleware(s.denied))
		r.Get("/api/messages", s.list)
		r.Get("/api/messages/{source}", s.listBySource)
		r.Get("/api/sources", s.listSources)
	})

	return r
}

// denied renders a token-gate rejection.
func (s *Server) denied(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrNoToken) {
		writeError(w, r, http.StatusForbidden, "No token provided")
		return
	}
	writeError(w, r, http.StatusUnauthorized, "Unauthorized: Invalid token")
}

// panicked renders the 500 after Recover has logged the panic.
func (s *Server) panicked(w http.ResponseWriter, r *http.Request, err error) {
	body := failure{Message: "Internal server error"}
	if s.dev {
		body.Error = err.Error()
	}
	writeJSON(w, r, http.StatusInternalServerError, body)
}

type indexResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, indexResponse{
		Message: "Portfolio Backend API is running!",
		Endpoints: map[string]string{
			"POST /api/login":           "Exchange the admin password for a bearer token",
			"POST /api/messages":        `Submit a new message (include "source" field to specify portfolio)`,
			"GET /api/messages":         "Retrieve all messages (use ?source=domain.com to filter)",
			"GET /api/messages/:source": "Retrieve messages for a specific portfolio source",
			"GET /api/sources":          "List all valid portfolio sources",
		},
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(message.Pinger); ok {
		// Concurrent health checks share one round trip to the store.
		_, err, _ := s.pings.Do("ping", func() (any, error) {
			return nil, p.Ping(r.Context())
		})
		if err != nil {
			s.writeInternal(w, r, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}
