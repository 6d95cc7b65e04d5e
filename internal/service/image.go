package service

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mxansari007/pearlbloom-admin/internal/domain"
	"github.com/mxansari007/pearlbloom-admin/internal/event"
	"github.com/mxansari007/pearlbloom-admin/internal/mediabackend"
	apperrors "github.com/mxansari007/pearlbloom-admin/pkg/errors"
	"github.com/mxansari007/pearlbloom-admin/pkg/logger"
	"github.com/mxansari007/pearlbloom-admin/pkg/tracing"
)

const tracerName = "github.com/mxansari007/pearlbloom-admin/internal/service"

// ImageService implements the upload and delete operations shared by every
// transport binding.
type ImageService struct {
	backend mediabackend.Backend
	events  event.Publisher
	folder  string
	logger  *slog.Logger
}

// NewImageService creates a new image service. A nil publisher disables
// events; an empty folder falls back to domain.DefaultFolder.
func NewImageService(
	backend mediabackend.Backend,
	events event.Publisher,
	folder string,
	logger *slog.Logger,
) *ImageService {
	if events == nil {
		events = event.Noop{}
	}
	if folder == "" {
		folder = domain.DefaultFolder
	}
	return &ImageService{
		backend: backend,
		events:  events,
		folder:  folder,
		logger:  logger,
	}
}

// UploadImage validates and decodes the payload, stores it in the backend
// and returns the asset's public identity.
func (s *ImageService) UploadImage(ctx context.Context, req *domain.UploadRequest) (result *domain.UploadResult, err error) {
	ctx, end := s.startSpan(ctx, "UploadImage")
	defer func() { end(err) }()

	if err := domain.ValidateUpload(req); err != nil {
		s.logRejected(ctx, "upload", err)
		return nil, err
	}

	data, err := domain.DecodePayload(req.Base64)
	if err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("image.filename", req.Filename),
		attribute.Int("image.bytes", len(data)),
	)

	contentType := req.MimeType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	uploaded, err := s.backend.Upload(ctx, &mediabackend.UploadInput{
		Folder:      s.folder,
		Filename:    req.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		s.log(ctx).ErrorContext(ctx, "image upload failed",
			slog.String("filename", req.Filename),
			slog.String("backend", s.backend.Name()),
			slog.String("error", err.Error()),
		)
		return nil, wrapBackendError(err)
	}

	result = &domain.UploadResult{
		URL:      uploaded.SecureURL,
		PublicID: uploaded.PublicID,
		Width:    uploaded.Width,
		Height:   uploaded.Height,
		Format:   uploaded.Format,
	}

	if err := s.events.PublishImageUploaded(ctx, event.ImageUploadedData{
		PublicID: result.PublicID,
		URL:      result.URL,
		Format:   result.Format,
		Width:    result.Width,
		Height:   result.Height,
		Bytes:    len(data),
		Backend:  s.backend.Name(),
	}); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish image.uploaded event",
			slog.String("public_id", result.PublicID),
			slog.String("error", err.Error()),
		)
	}

	s.log(ctx).InfoContext(ctx, "image uploaded",
		slog.String("public_id", result.PublicID),
		slog.String("format", result.Format),
		slog.Int("bytes", len(data)),
	)

	return result, nil
}

// DeleteImage destroys the asset identified by req.PublicID and forwards the
// backend acknowledgement unchanged.
func (s *ImageService) DeleteImage(ctx context.Context, req *domain.DeleteRequest) (result *domain.DeleteResult, err error) {
	ctx, end := s.startSpan(ctx, "DeleteImage")
	defer func() { end(err) }()

	if err := domain.ValidateDelete(req); err != nil {
		s.logRejected(ctx, "delete", err)
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("image.public_id", req.PublicID))

	deleted, err := s.backend.Delete(ctx, req.PublicID)
	if err != nil {
		s.log(ctx).ErrorContext(ctx, "image delete failed",
			slog.String("public_id", req.PublicID),
			slog.String("backend", s.backend.Name()),
			slog.String("error", err.Error()),
		)
		return nil, wrapBackendError(err)
	}

	result = &domain.DeleteResult{Result: deleted.Result}

	if result.Result != mediabackend.ResultOK {
		s.log(ctx).WarnContext(ctx, "image delete not acknowledged",
			slog.String("public_id", req.PublicID),
			slog.String("result", result.Result),
		)
	}

	if err := s.events.PublishImageDeleted(ctx, event.ImageDeletedData{
		PublicID: req.PublicID,
		Result:   result.Result,
		Backend:  s.backend.Name(),
	}); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish image.deleted event",
			slog.String("public_id", req.PublicID),
			slog.String("error", err.Error()),
		)
	}

	s.log(ctx).InfoContext(ctx, "image deleted",
		slog.String("public_id", req.PublicID),
		slog.String("result", result.Result),
	)

	return result, nil
}

func (s *ImageService) startSpan(ctx context.Context, operation string) (context.Context, func(error)) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "ImageService."+operation,
		trace.WithAttributes(attribute.String("media.backend", s.backend.Name())),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// log prefers the request-scoped logger installed by the HTTP middleware.
func (s *ImageService) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

func (s *ImageService) logRejected(ctx context.Context, op string, err error) {
	s.log(ctx).InfoContext(ctx, "image request rejected",
		slog.String("operation", op),
		slog.Any("missing", domain.MissingFields(err)),
	)
}

// wrapBackendError maps a backend failure to Internal, keeping its message.
// Errors that are already typed pass through.
func wrapBackendError(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(err)
}
