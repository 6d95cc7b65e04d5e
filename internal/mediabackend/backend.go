// Package mediabackend defines the storage side of the image proxy: the
// Backend contract every media host implements and the decorators that wrap
// it.
package mediabackend

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Acknowledgements returned by Delete.
const (
	ResultOK       = "ok"
	ResultNotFound = "not found"
)

// Backend stores and destroys image assets. Implementations make exactly one
// round trip per call and never retry.
type Backend interface {
	// Upload stores the bytes under folder and returns the assigned identity.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete destroys the asset with the given public id. An unknown id is
	// not an error; the acknowledgement says so.
	Delete(ctx context.Context, publicID string) (*DeleteResult, error)

	// Ping checks that the backend is reachable with the configured credentials.
	Ping(ctx context.Context) error

	// Name identifies the backend in logs and metrics.
	Name() string
}

// UploadInput holds the parameters for uploading an image.
type UploadInput struct {
	Folder      string
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult is what the backend reports about a stored asset.
type UploadResult struct {
	PublicID  string
	SecureURL string
	Width     int
	Height    int
	Format    string
	Bytes     int
}

// DeleteResult carries the backend acknowledgement verbatim.
type DeleteResult struct {
	Result string
}

// Credentials are the three values a hosted media backend needs.
type Credentials struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Credential variable names, in the order they are reported.
const (
	EnvCloudName = "CLOUDINARY_CLOUD_NAME"
	EnvAPIKey    = "CLOUDINARY_API_KEY"
	EnvAPISecret = "CLOUDINARY_API_SECRET"
)

// Missing returns the variable names of the credentials that are blank.
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.CloudName) == "" {
		missing = append(missing, EnvCloudName)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, EnvAPIKey)
	}
	if strings.TrimSpace(c.APISecret) == "" {
		missing = append(missing, EnvAPISecret)
	}
	return missing
}

// NewPublicID builds an identifier of the form <folder>/<uuid><ext> for
// self-hosted backends. The extension is taken from filename, lower-cased.
func NewPublicID(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "." {
		ext = ""
	}
	return path.Join(folder, uuid.New().String()+ext)
}
