// internal/auth/gate.go
//
// Bearer-token gate for protected routes.
//
// Context
// -------
// Authorize reads the Authorization header.  A missing or empty header is
// ErrNoToken (403).  A leading "Bearer " is stripped; without it the whole
// header value is taken as the token, which keeps older clients that send
// the bare JWT working.  Anything that fails verification is
// ErrInvalidToken (401).
//
// The gate does no I/O, so it is safe to run fully in parallel.

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/yanizio/inbox/internal/logger"
	"github.com/yanizio/inbox/internal/metrics"
)

const bearerPrefix = "Bearer "

// TokenVerifier is satisfied by *Issuer.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Gate guards protected handlers.
type Gate struct {
	verifier TokenVerifier
}

// NewGate returns a Gate backed by v.
func NewGate(v TokenVerifier) *Gate {
	return &Gate{verifier: v}
}

// Authorize extracts and verifies the token carried in h.
func (g *Gate) Authorize(h http.Header) (*Claims, error) {
	raw := h.Get("Authorization")
	if raw == "" {
		return nil, ErrNoToken
	}
	token := strings.TrimPrefix(raw, bearerPrefix)

	claims, err := g.verifier.Verify(token)
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			err = errors.Join(ErrInvalidToken, err)
		}
		return nil, err
	}
	return claims, nil
}

// Middleware returns a chi-compatible middleware.  fail renders the
// rejection and receives ErrNoToken or an error wrapping ErrInvalidToken.
func (g *Gate) Middleware(fail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.Authorize(r.Header)
			if err != nil {
				reason := "invalid_token"
				if errors.Is(err, ErrNoToken) {
					reason = "no_token"
				}
				metrics.GateRejectionsTotal.WithLabelValues(reason).Inc()
				logger.FromContext(r.Context()).Debugw("token gate rejected request",
					"path", r.URL.Path, "reason", reason, "err", err)
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
