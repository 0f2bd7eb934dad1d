// internal/middleware/cors.go
//
// Cross-origin allow-list for the portfolio sites.

package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORS allows the listed portfolio origins to call the API with
// credentials.  Requests without an Origin header (curl, mobile apps,
// server-to-server) are not affected.  A request from an origin outside
// the list still reaches the handler but gets no Access-Control-* headers,
// so the browser refuses to expose the response.
//
// An empty list allows no cross-origin callers.  gorilla/handlers would
// otherwise treat it as "*".
func CORS(origins []string) func(http.Handler) http.Handler {
	opts := []handlers.CORSOption{
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	}
	if len(origins) == 0 {
		opts = append(opts, handlers.AllowedOriginValidator(func(string) bool { return false }))
	} else {
		opts = append(opts, handlers.AllowedOrigins(origins))
	}
	return handlers.CORS(opts...)
}
