// internal/middleware/recover.go
//
// Panic recovery with optional Sentry capture.

package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	raven "github.com/getsentry/raven-go"

	"github.com/yanizio/inbox/internal/logger"
)

// Recover turns a handler panic into an ERROR log line and a call to fail,
// which renders the 500.  With capture set the panic is also sent to
// Sentry through the raven default client.  http.ErrAbortHandler is
// re-raised so net/http can abort the connection as intended.
func Recover(capture bool, fail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				err = fmt.Errorf("panic: %w", err)

				logger.FromContext(r.Context()).Errorw("handler panic",
					"path", r.URL.Path, "err", err, "stack", string(debug.Stack()))
				if capture {
					raven.CaptureError(err, map[string]string{"path": r.URL.Path}, raven.NewHttp(r))
				}
				fail(w, r, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
