package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mxansari007/pearlbloom-admin/pkg/logger"
)

// RequestLogger returns middleware that builds a request-scoped logger with
// correlation_id, user_id, role, trace_id and span_id and stores it via
// logger.NewContext. Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if uid := UserIDFromContext(ctx); uid != "" {
				ctx = logger.WithUserID(ctx, uid)
			}

			l := logger.WithContext(ctx, base)
			if role := RoleFromContext(ctx); role != "" {
				l = l.With(slog.String("role", role))
			}
			ctx = logger.NewContext(ctx, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
