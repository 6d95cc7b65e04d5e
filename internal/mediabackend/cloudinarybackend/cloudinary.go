// Package cloudinarybackend stores images on Cloudinary.
package cloudinarybackend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/mxansari007/pearlbloom-admin/internal/mediabackend"
)

// Name is the backend name reported in logs and metrics.
const Name = "cloudinary"

var errEmptyResponse = errors.New("Empty Cloudinary response")

// Backend implements mediabackend.Backend on the Cloudinary upload API.
type Backend struct {
	cld     *cloudinary.Cloudinary
	initErr error
}

// New builds the client once from creds. Missing credentials are logged as a
// warning and do not stop startup; the API call then reports its own error.
func New(creds mediabackend.Credentials, logger *slog.Logger) *Backend {
	if missing := creds.Missing(); len(missing) > 0 {
		logger.Warn("cloudinary credentials missing; set them in the environment",
			slog.Any("missing", missing),
		)
	}

	cld, err := cloudinary.NewFromParams(creds.CloudName, creds.APIKey, creds.APISecret)
	if err != nil {
		logger.Warn("cloudinary client not configured", slog.String("error", err.Error()))
		return &Backend{initErr: fmt.Errorf("configure cloudinary: %w", err)}
	}

	return &Backend{cld: cld}
}

func (b *Backend) Name() string { return Name }

// Upload streams the bytes to Cloudinary under input.Folder.
func (b *Backend) Upload(ctx context.Context, input *mediabackend.UploadInput) (*mediabackend.UploadResult, error) {
	if b.initErr != nil {
		return nil, b.initErr
	}

	resp, err := b.cld.Upload.Upload(ctx, bytes.NewReader(input.Data), uploader.UploadParams{
		Folder: input.Folder,
	})
	if err != nil {
		return nil, err
	}
	return toUploadResult(resp)
}

// Delete destroys the asset and returns Cloudinary's result string as is.
func (b *Backend) Delete(ctx context.Context, publicID string) (*mediabackend.DeleteResult, error) {
	if b.initErr != nil {
		return nil, b.initErr
	}

	resp, err := b.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return nil, err
	}
	return toDeleteResult(resp)
}

// Ping calls the Admin API ping endpoint, which also checks the credentials.
func (b *Backend) Ping(ctx context.Context) error {
	if b.initErr != nil {
		return b.initErr
	}

	resp, err := b.cld.Admin.Ping(ctx)
	if err != nil {
		return err
	}
	return toPingError(resp)
}

func toUploadResult(resp *uploader.UploadResult) (*mediabackend.UploadResult, error) {
	if resp == nil {
		return nil, errEmptyResponse
	}
	if resp.Error.Message != "" {
		return nil, errors.New(resp.Error.Message)
	}
	return &mediabackend.UploadResult{
		PublicID:  resp.PublicID,
		SecureURL: resp.SecureURL,
		Width:     resp.Width,
		Height:    resp.Height,
		Format:    resp.Format,
		Bytes:     resp.Bytes,
	}, nil
}

func toDeleteResult(resp *uploader.DestroyResult) (*mediabackend.DeleteResult, error) {
	if resp == nil {
		return nil, errEmptyResponse
	}
	if resp.Error.Message != "" {
		return nil, errors.New(resp.Error.Message)
	}
	return &mediabackend.DeleteResult{Result: resp.Result}, nil
}

func toPingError(resp *admin.PingResult) error {
	if resp == nil {
		return errEmptyResponse
	}
	if resp.Error.Message != "" {
		return errors.New(resp.Error.Message)
	}
	return nil
}
