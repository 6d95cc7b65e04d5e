// Package http exposes the image operations as plain JSON-over-HTTP endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mxansari007/pearlbloom-admin/internal/domain"
	apperrors "github.com/mxansari007/pearlbloom-admin/pkg/errors"
	"github.com/mxansari007/pearlbloom-admin/pkg/httputil"
	"github.com/mxansari007/pearlbloom-admin/pkg/logger"
	"github.com/mxansari007/pearlbloom-admin/pkg/validator"
)

// Route paths.
const (
	PathUploadImage = "/uploadimage"
	PathDeleteImage = "/deleteimage"
)

// ImageService is the subset of service.ImageService the handler calls.
type ImageService interface {
	UploadImage(ctx context.Context, req *domain.UploadRequest) (*domain.UploadResult, error)
	DeleteImage(ctx context.Context, req *domain.DeleteRequest) (*domain.DeleteResult, error)
}

// ImageHandler handles the plain HTTP image endpoints.
type ImageHandler struct {
	service      ImageService
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewImageHandler creates a new image HTTP handler. Request bodies larger than
// maxBodyBytes are rejected; zero or less disables the limit.
func NewImageHandler(svc ImageService, maxBodyBytes int64, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		service:      svc,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Routes maps each endpoint path to its handler. The handlers accept every
// method so origin headers and the method check apply uniformly.
func (h *ImageHandler) Routes() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		PathUploadImage: h.UploadImage,
		PathDeleteImage: h.DeleteImage,
	}
}

// UploadImage handles POST /uploadimage.
func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r) {
		return
	}

	var req domain.UploadRequest
	if err := h.decode(w, r, &req, domain.MsgUploadFieldsRequired); err != nil {
		httputil.WriteError(w, r, err, "Upload failed", h.logger)
		return
	}

	result, err := h.service.UploadImage(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, "Upload failed", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// DeleteImage handles POST /deleteimage.
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if !h.allowMethod(w, r) {
		return
	}

	var req domain.DeleteRequest
	if err := h.decode(w, r, &req, domain.MsgPublicIDRequired); err != nil {
		httputil.WriteError(w, r, err, "Delete failed", h.logger)
		return
	}

	result, err := h.service.DeleteImage(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, "Delete failed", h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, domain.DeleteResponse{Result: result})
}

// allowMethod answers preflights with 204 and anything but POST with 405.
func (h *ImageHandler) allowMethod(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost:
		return true
	case http.MethodOptions:
		httputil.WriteNoContent(w)
	default:
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
	return false
}

// decode reads the JSON body into dst. An empty body leaves dst zeroed. A field
// of the wrong JSON type is reported with invalidMsg, the same message a
// missing field gets.
func (h *ImageHandler) decode(w http.ResponseWriter, r *http.Request, dst any, invalidMsg string) error {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	if err := validator.DecodeJSON(body, dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.ResourceExhausted(domain.MsgFileTooLarge)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			logger.FromContextOr(r.Context(), h.logger).WarnContext(r.Context(), "request field has wrong type",
				slog.String("path", r.URL.Path),
				slog.String("field", typeErr.Field),
				slog.String("got", typeErr.Value),
			)
			return apperrors.InvalidArgument(invalidMsg)
		}
		return err
	}
	return nil
}
