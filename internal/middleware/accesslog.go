// internal/middleware/accesslog.go
//
// One structured log line per request.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/yanizio/inbox/internal/logger"
	"github.com/yanizio/inbox/internal/requestinfo"
)

// AccessLog writes one INFO line per request once the handler returns.
// It must run inside RequestID so the line carries the request id.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		}
		if info := requestinfo.FromContext(r.Context()); info != nil {
			fields = append(fields, "ip", info.IP.String(), "bot", info.UA.IsBot)
		}
		logger.FromContext(r.Context()).Infow("http request", fields...)
	})
}
