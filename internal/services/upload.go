package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/devfolio/apiserver/internal/imaging"
	"github.com/devfolio/apiserver/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MediaRepository persists upload records.
type MediaRepository interface {
	Create(ctx context.Context, media types.Media) (types.Media, error)
}

// ObjectStore is the subset of object storage used by uploads.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ImageProcessor turns an uploaded image into its stored form.
type ImageProcessor interface {
	Process(data []byte) (imaging.Result, error)
}

// UploadFile is one file part of an upload request.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadLimits bounds a single upload request.
type UploadLimits struct {
	MaxFileSize int64
	MaxFiles    int
}

// UploadService validates, converts and stores uploaded images.
type UploadService struct {
	media     MediaRepository
	objects   ObjectStore
	processor ImageProcessor
	limits    UploadLimits
	logger    *zap.Logger
	now       func() time.Time
}

func NewUploadService(media MediaRepository, objects ObjectStore, processor ImageProcessor, limits UploadLimits, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{
		media:     media,
		objects:   objects,
		processor: processor,
		limits:    limits,
		logger:    logger.Named("upload"),
		now:       time.Now,
	}
}

// Limits returns the configured request bounds.
func (s *UploadService) Limits() UploadLimits {
	return s.limits
}

// Validate checks count, declared and sniffed content type and size of every
// file without touching storage.
func (s *UploadService) Validate(files []UploadFile) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	if s.limits.MaxFiles > 0 && len(files) > s.limits.MaxFiles {
		return fmt.Errorf("%w: at most %d per request", ErrTooManyFiles, s.limits.MaxFiles)
	}
	for _, f := range files {
		if s.limits.MaxFileSize > 0 && int64(len(f.Data)) > s.limits.MaxFileSize {
			return fmt.Errorf("%w: %s", ErrFileTooLarge, f.Filename)
		}
		if !imaging.IsImageMimeType(f.ContentType) || imaging.DetectFormat(f.Data) == "" {
			return fmt.Errorf("%w: %s", ErrUnsupportedType, f.Filename)
		}
	}
	return nil
}

// Upload validates and converts every file before the first storage write,
// then stores all objects before recording any Media row. Objects left
// without a row by a failure are removed again.
func (s *UploadService) Upload(ctx context.Context, files []UploadFile) ([]types.Media, error) {
	if err := s.Validate(files); err != nil {
		return nil, err
	}

	processed := make([]imaging.Result, len(files))
	for i, f := range files {
		res, err := s.processor.Process(f.Data)
		if err != nil {
			s.logger.Info("image rejected", zap.String("filename", f.Filename), zap.Error(err))
			return nil, fmt.Errorf("%w: %s", ErrInvalidImage, f.Filename)
		}
		processed[i] = res
	}

	keys := make([]string, len(files))
	for i, res := range processed {
		key := s.objectKey()
		if err := s.objects.Put(ctx, key, bytes.NewReader(res.Data), int64(len(res.Data)), res.MimeType); err != nil {
			s.removeObjects(ctx, keys[:i])
			return nil, fmt.Errorf("put %s: %w", key, err)
		}
		keys[i] = key
	}

	out := make([]types.Media, 0, len(files))
	for i, f := range files {
		res, key := processed[i], keys[i]
		media, err := s.media.Create(ctx, types.Media{
			Filename:     path.Base(key),
			OriginalName: originalName(f.Filename),
			Mimetype:     res.MimeType,
			Size:         int64(len(res.Data)),
			URL:          s.objects.PublicURL(key),
			Path:         key,
		})
		if err != nil {
			// Objects that already have a row stay referenced.
			s.removeObjects(ctx, keys[i:])
			return nil, fmt.Errorf("save media %s: %w", key, err)
		}
		s.logger.Info("image stored",
			zap.String("key", key),
			zap.Int("width", res.Width),
			zap.Int("height", res.Height),
			zap.Int("bytes", len(res.Data)),
		)
		out = append(out, media)
	}
	return out, nil
}

func (s *UploadService) removeObjects(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			s.logger.Warn("remove orphaned object failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// objectKey yields uploads/<unix-ms>-<random>.webp.
func (s *UploadService) objectKey() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("uploads/%d-%s.webp", s.now().UnixMilli(), random)
}

func originalName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

// IsUploadRejection reports whether err is a client-side upload problem.
func IsUploadRejection(err error) bool {
	return errors.Is(err, ErrNoFiles) ||
		errors.Is(err, ErrTooManyFiles) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrInvalidImage)
}
