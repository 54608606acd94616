// Package imaging normalizes uploaded images: EXIF orientation is applied,
// oversized images are scaled down to fit a bounding box and the result is
// re-encoded as lossy WebP.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// MimeTypeWebP is the content type of every processed image.
const MimeTypeWebP = "image/webp"

// maxPixels guards against decompression bombs.
const maxPixels = 50_000_000

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooManyPixels     = errors.New("image dimensions too large")
)

// Options bounds the output size and sets the WebP quality (1-100).
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// Result is a processed image.
type Result struct {
	Data     []byte
	Width    int
	Height   int
	MimeType string
}

// Processor converts images according to Options. It holds no state and
// is safe for concurrent use.
type Processor struct {
	opts Options
}

func NewProcessor(opts Options) *Processor {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 80
	}
	return &Processor{opts: opts}
}

// Process decodes data, applies EXIF orientation, fits it inside the
// configured box without upscaling and encodes it as WebP. Animated GIFs
// keep their first frame only.
func (p *Processor) Process(data []byte) (Result, error) {
	if DetectFormat(data) == "" {
		return Result{}, ErrUnsupportedFormat
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("read image config: %w", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return Result{}, ErrTooManyPixels
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	if p.opts.MaxWidth > 0 && p.opts.MaxHeight > 0 {
		img = imaging.Fit(img, p.opts.MaxWidth, p.opts.MaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(p.opts.Quality)}); err != nil {
		return Result{}, fmt.Errorf("encode webp: %w", err)
	}

	bounds := img.Bounds()
	return Result{
		Data:     buf.Bytes(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: MimeTypeWebP,
	}, nil
}

// DetectMimeType sniffs the content type of data, without parameters.
func DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return contentType
}

// DetectFormat returns jpeg, png, gif or webp, or "" for anything else.
// TIFF is rejected outright.
func DetectFormat(data []byte) string {
	switch DetectMimeType(data) {
	case "image/jpeg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return ""
	}
}

// IsImageMimeType reports whether a declared content type is an image type.
func IsImageMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mimeType, "image/")
}

// readExifOrientation returns 1 (normal) when the tag is absent or unreadable.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation undoes EXIF orientations 2-8.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
