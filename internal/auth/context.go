// internal/auth/context.go
//
// Request-context helpers for verified token claims.
//
// Usage
// -----
//
//	// The gate attaches claims after a token verifies.
//	ctx = auth.WithClaims(ctx, claims)
//
//	// Downstream handlers read them back.
//	c, ok := auth.ClaimsFromContext(ctx)   // c.Role == "admin"

package auth

import "context"

// claimsKey is unexported to avoid context-key collisions.
type claimsKey struct{}

// WithClaims returns a new context carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims stored by the gate.  It returns
// (nil, false) on public routes.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}
