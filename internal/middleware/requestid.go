// internal/middleware/requestid.go
//
// Request ids and the request-scoped logger.

package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/inbox/internal/logger"
)

// RequestIDHeader is read from the request and echoed on the response.
const RequestIDHeader = "X-Request-Id"

// maxRequestIDLen bounds an inbound id before it lands in the logs.
const maxRequestIDLen = 64

// RequestID tags each request with an id and stores a child of base,
// carrying `request_id`, in the request context.  A well-formed inbound
// X-Request-Id is reused so ids line up with the proxy's logs.
func RequestID(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := logger.WithContext(r.Context(), base.With("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
