package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "github.com/mxansari007/pearlbloom-admin/pkg/errors"
	"github.com/mxansari007/pearlbloom-admin/pkg/logger"
)

// ErrorBody is the flat JSON error shape returned by the plain HTTP endpoints.
// Code is present only for typed failures.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// If encoding fails the headers are already sent so nothing can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteNoContent writes a bare 204 with no body.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteErrorMessage writes {"error": message} with the given status.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}

// WriteError maps err onto the HTTP endpoints' error contract:
//
//   - a typed caller-side failure (AppError with a 4xx status) -> 400 {error, code}
//   - anything else -> 500 {error}
//
// fallbackMessage is used when err carries no message of its own. The
// request-scoped logger from context is preferred over fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string, fallback *slog.Logger) {
	l := logger.FromContextOr(r.Context(), fallback)

	if appErr, ok := apperrors.As(err); ok && apperrors.IsClientError(err) {
		l.WarnContext(r.Context(), "request rejected",
			slog.String("code", appErr.Code),
			slog.String("error", appErr.Message),
			slog.String("path", r.URL.Path),
		)
		WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: appErr.Message, Code: appErr.Code})
		return
	}

	message := fallbackMessage
	if appErr, ok := apperrors.As(err); ok && appErr.Message != "" {
		message = appErr.Message
	} else if err != nil && err.Error() != "" {
		message = err.Error()
	}

	l.ErrorContext(r.Context(), "request failed",
		slog.String("error", errString(err)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	WriteErrorMessage(w, http.StatusInternalServerError, message)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
