package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mxansari007/pearlbloom-admin/pkg/httputil"
)

// PanicWriter writes the response for a recovered panic.
type PanicWriter func(w http.ResponseWriter, r *http.Request, rec any)

// Recovery recovers from panics and returns a 500 error instead of crashing.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return RecoveryFunc(l, func(w http.ResponseWriter, _ *http.Request, _ any) {
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "an internal error occurred")
	})
}

// RecoveryFunc is Recovery with a caller-supplied response writer, so each
// route group can keep its own error envelope.
func RecoveryFunc(l *slog.Logger, write PanicWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					l.ErrorContext(r.Context(), "panic recovered",
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
					write(w, r, rec)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
