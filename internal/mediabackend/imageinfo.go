package mediabackend

import (
	"bytes"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// maxOrientPixels caps the JPEGs that are fully decoded to apply their EXIF
// orientation. Larger images report their header dimensions as stored.
const maxOrientPixels = 16 << 20

// ImageInfo describes the pixel dimensions and format of an uploaded image.
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

// Inspect reports dimensions and format for self-hosted backends. Dimensions
// come from the image header, so a small payload declaring a huge canvas is
// never expanded in memory. Content is not validated: undecodable data yields
// zero dimensions, and the format then falls back to the filename extension.
func Inspect(filename string, data []byte) ImageInfo {
	var info ImageInfo

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
		if format == "jpeg" && int64(cfg.Width)*int64(cfg.Height) <= maxOrientPixels {
			if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
				b := img.Bounds()
				info.Width, info.Height = b.Dx(), b.Dy()
			}
		}
	}

	if f, err := imaging.FormatFromFilename(filename); err == nil {
		info.Format = formatName(f)
	} else {
		info.Format = strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	}
	return info
}

func formatName(f imaging.Format) string {
	if f == imaging.JPEG {
		return "jpg"
	}
	return strings.ToLower(f.String())
}
