// Package callable exposes the image operations over the callable function
// wire protocol: a POST of {"data": ...} answered with {"result": ...} or
// {"error": {"status", "message"}}.
package callable

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/cors"

	"github.com/mxansari007/pearlbloom-admin/internal/domain"
	"github.com/mxansari007/pearlbloom-admin/internal/mediabackend"
	apperrors "github.com/mxansari007/pearlbloom-admin/pkg/errors"
	"github.com/mxansari007/pearlbloom-admin/pkg/httputil"
	"github.com/mxansari007/pearlbloom-admin/pkg/logger"
)

// Route paths.
const (
	PathUploadImage = "/uploadImageCallable"
	PathDeleteImage = "/deleteImageCallable"
)

// RequiredSecrets names the environment values both callables need.
var RequiredSecrets = []string{
	mediabackend.EnvCloudName,
	mediabackend.EnvAPIKey,
	mediabackend.EnvAPISecret,
}

const msgBadRequest = "Bad Request"

// ImageService is the subset of service.ImageService the callables invoke.
type ImageService interface {
	UploadImage(ctx context.Context, req *domain.UploadRequest) (*domain.UploadResult, error)
	DeleteImage(ctx context.Context, req *domain.DeleteRequest) (*domain.DeleteResult, error)
}

// ErrorDetail is the error object of a failed call.
type ErrorDetail struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

type resultEnvelope struct {
	Result any `json:"result"`
}

type requestEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// Handler serves the callable endpoints.
type Handler struct {
	service      ImageService
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewHandler creates a new callable handler.
func NewHandler(svc ImageService, maxBodyBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		service:      svc,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Routes maps each callable path to its handler.
func (h *Handler) Routes() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		PathUploadImage: h.UploadImage,
		PathDeleteImage: h.DeleteImage,
	}
}

// CORS returns the permissive cross-origin policy callable clients expect:
// any http or https origin is reflected.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           3600,
	})
}

// UploadImage handles the uploadImageCallable function.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	var req domain.UploadRequest
	if !h.readData(w, r, &req, domain.MsgUploadFieldsRequired) {
		return
	}

	result, err := h.service.UploadImage(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteResult(w, result)
}

// DeleteImage handles the deleteImageCallable function.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteRequest
	if !h.readData(w, r, &req, domain.MsgPublicIDRequired) {
		return
	}

	result, err := h.service.DeleteImage(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteResult(w, result)
}

// readData validates the envelope and decodes its data field into dst. A data
// value of the wrong shape is answered with INVALID_ARGUMENT and invalidMsg.
func (h *Handler) readData(w http.ResponseWriter, r *http.Request, dst any, invalidMsg string) bool {
	if r.Method == http.MethodOptions {
		httputil.WriteNoContent(w)
		return false
	}
	if r.Method != http.MethodPost || !isJSON(r.Header.Get("Content-Type")) {
		h.reject(w, r, "invalid envelope", slog.String("method", r.Method))
		return false
	}

	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var env requestEnvelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, apperrors.ResourceExhausted(domain.MsgFileTooLarge))
			return false
		}
		h.reject(w, r, "malformed body", slog.String("error", err.Error()))
		return false
	}
	if env.Data == nil {
		h.reject(w, r, "missing data field")
		return false
	}

	if err := json.Unmarshal(env.Data, dst); err != nil {
		logger.FromContextOr(r.Context(), h.logger).WarnContext(r.Context(), "callable data has wrong shape",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		h.writeError(w, r, apperrors.InvalidArgument(invalidMsg))
		return false
	}
	return true
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, reason string, attrs ...any) {
	attrs = append(attrs, slog.String("reason", reason), slog.String("path", r.URL.Path))
	logger.FromContextOr(r.Context(), h.logger).WarnContext(r.Context(), "callable request rejected", attrs...)
	WriteError(w, http.StatusBadRequest, ErrorDetail{Status: "INVALID_ARGUMENT", Message: msgBadRequest})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := ErrorFor(err)

	l := logger.FromContextOr(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "callable failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	} else {
		l.WarnContext(r.Context(), "callable rejected",
			slog.String("path", r.URL.Path),
			slog.String("status", detail.Status),
			slog.String("error", detail.Message),
		)
	}

	WriteError(w, status, detail)
}

// ErrorFor maps err to the HTTP status and error object of the callable
// protocol. Untyped errors become INTERNAL carrying their own message.
func ErrorFor(err error) (int, ErrorDetail) {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Status, ErrorDetail{
			Status:  apperrors.CanonicalStatus(appErr.Code),
			Message: appErr.Message,
		}
	}

	msg := "INTERNAL"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return http.StatusInternalServerError, ErrorDetail{Status: "INTERNAL", Message: msg}
}

// WriteResult writes {"result": v} with status 200.
func WriteResult(w http.ResponseWriter, v any) {
	httputil.WriteJSON(w, http.StatusOK, resultEnvelope{Result: v})
}

// WriteError writes {"error": detail} with the given status.
func WriteError(w http.ResponseWriter, status int, detail ErrorDetail) {
	httputil.WriteJSON(w, status, errorEnvelope{Error: detail})
}

// RejectUnauthenticated writes the UNAUTHENTICATED error. It satisfies
// middleware.RejectFunc.
func RejectUnauthenticated(w http.ResponseWriter, _ *http.Request, message string) {
	status, detail := ErrorFor(apperrors.Unauthenticated(message))
	WriteError(w, status, detail)
}

// RejectRateLimited writes the RESOURCE_EXHAUSTED error for throttled calls.
func RejectRateLimited(w http.ResponseWriter, _ *http.Request, message string) {
	status, detail := ErrorFor(apperrors.ResourceExhausted(message))
	WriteError(w, status, detail)
}

// WritePanic answers a recovered panic with INTERNAL.
func WritePanic(w http.ResponseWriter, _ *http.Request, _ any) {
	WriteError(w, http.StatusInternalServerError, ErrorDetail{Status: "INTERNAL", Message: "INTERNAL"})
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
