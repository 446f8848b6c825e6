package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/piae/company-expenses/pkg/logger"
)

// RecoveryMiddleware turns a handler panic into a 500. The stack goes to
// the context logger, which already carries the trace id, so the failure
// can be correlated with the access log.
func RecoveryMiddleware(lg *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						"error", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					fmt.Fprint(w, `{"code": 500, "message": "internal server error"}`)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
