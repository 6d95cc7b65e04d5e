package domain

import (
	"errors"

	apperrors "github.com/mxansari007/pearlbloom-admin/pkg/errors"
	"github.com/mxansari007/pearlbloom-admin/pkg/validator"
)

// MaxUploadBytes is the ceiling on the decoded image size (8 MiB).
const MaxUploadBytes = 8 * 1024 * 1024

// DefaultFolder is the backend folder product images are stored under.
const DefaultFolder = "products"

// Messages returned to callers. Admin clients match on these strings.
const (
	MsgUploadFieldsRequired = "filename and base64 are required."
	MsgFileTooLarge         = "File too large. Max 8 MB allowed."
	MsgPublicIDRequired     = "public_id required"
)

// UploadRequest is the payload both bindings accept for an upload.
type UploadRequest struct {
	Filename string `json:"filename" validate:"required"`
	// Base64 is either bare base64 or a data:<mime>;base64,<payload> URI.
	Base64 string `json:"base64" validate:"required"`
	// MimeType is informational only and never checked against the content.
	MimeType string `json:"mimeType,omitempty"`
}

// UploadResult is returned to callers after a successful upload.
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
}

// DeleteRequest identifies a previously uploaded asset.
type DeleteRequest struct {
	PublicID string `json:"public_id" validate:"required"`
}

// DeleteResult is the backend's acknowledgement of a destroy call, such as
// {"result":"ok"} or {"result":"not found"}. It is forwarded verbatim.
type DeleteResult struct {
	Result string `json:"result"`
}

// DeleteResponse is the success body of both delete entry points.
type DeleteResponse struct {
	Result *DeleteResult `json:"result"`
}

// ValidateUpload checks that filename and base64 are present.
func ValidateUpload(req *UploadRequest) error {
	if req == nil {
		return apperrors.InvalidArgument(MsgUploadFieldsRequired)
	}
	if err := validator.Validate(req); err != nil {
		return invalidArgument(MsgUploadFieldsRequired, err)
	}
	return nil
}

// ValidateDelete checks that public_id is present.
func ValidateDelete(req *DeleteRequest) error {
	if req == nil {
		return apperrors.InvalidArgument(MsgPublicIDRequired)
	}
	if err := validator.Validate(req); err != nil {
		return invalidArgument(MsgPublicIDRequired, err)
	}
	return nil
}

// invalidArgument keeps the validation failure in the error chain behind the
// fixed caller-facing message.
func invalidArgument(msg string, cause error) error {
	appErr := apperrors.InvalidArgument(msg)
	appErr.Err = cause
	return appErr
}

// MissingFields returns the JSON names of the required fields err reports as
// absent, or nil when err carries no validation detail.
func MissingFields(err error) []string {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Missing()
	}
	return nil
}
