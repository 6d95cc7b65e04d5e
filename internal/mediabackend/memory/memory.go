package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/mxansari007/pearlbloom-admin/internal/mediabackend"
)

// Name is the backend name reported in logs and metrics.
const Name = "memory"

type asset struct {
	contentType string
	size        int
}

// Backend implements mediabackend.Backend with an in-process map. It keeps
// metadata only; the bytes are inspected and dropped.
type Backend struct {
	mu      sync.RWMutex
	assets  map[string]*asset
	baseURL string
}

// New creates a memory backend whose URLs are rooted at baseURL.
func New(baseURL string) *Backend {
	return &Backend{
		assets:  make(map[string]*asset),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (b *Backend) Name() string { return Name }

// Upload records the asset and returns its generated identity.
func (b *Backend) Upload(ctx context.Context, input *mediabackend.UploadInput) (*mediabackend.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := mediabackend.NewPublicID(input.Folder, input.Filename)
	info := mediabackend.Inspect(input.Filename, input.Data)
	url := b.baseURL + "/" + id

	b.mu.Lock()
	b.assets[id] = &asset{contentType: input.ContentType, size: len(input.Data)}
	b.mu.Unlock()

	return &mediabackend.UploadResult{
		PublicID:  id,
		SecureURL: url,
		Width:     info.Width,
		Height:    info.Height,
		Format:    info.Format,
		Bytes:     len(input.Data),
	}, nil
}

// Delete removes the asset. Unknown ids are acknowledged with "not found".
func (b *Backend) Delete(ctx context.Context, publicID string) (*mediabackend.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.assets[publicID]; !ok {
		return &mediabackend.DeleteResult{Result: mediabackend.ResultNotFound}, nil
	}
	delete(b.assets, publicID)
	return &mediabackend.DeleteResult{Result: mediabackend.ResultOK}, nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return ctx.Err()
}
