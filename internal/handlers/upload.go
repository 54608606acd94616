package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/devfolio/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	formFieldImage     = "image"
	formFieldImages    = "images"
	maxMultipartMemory = 32 << 20
	multipartOverhead  = 1 << 20
)

var errUploadTooLarge = errors.New("upload too large")

// UploadResponse describes one stored image.
type UploadResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// UploadHandler accepts image uploads.
type UploadHandler struct {
	service *services.UploadService
	logger  *zap.Logger
}

func NewUploadHandler(service *services.UploadService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{service: service, logger: logger}
}

// UploadRouter registers upload routes on the given router. All routes are
// admin only.
func UploadRouter(r chi.Router, service *services.UploadService, auth *Authenticator, logger *zap.Logger) {
	handler := NewUploadHandler(service, logger)

	r.Use(auth.Admin)
	r.Post("/image", handler.UploadImage)
	r.Post("/images", handler.UploadImages)
}

// UploadImage stores the single file in form field "image".
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	out, ok := h.handle(w, r, formFieldImage, 1)
	if !ok {
		return
	}
	writeData(w, http.StatusCreated, out[0])
}

// UploadImages stores every file in form field "images".
func (h *UploadHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	out, ok := h.handle(w, r, formFieldImages, h.service.Limits().MaxFiles)
	if !ok {
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (h *UploadHandler) handle(w http.ResponseWriter, r *http.Request, field string, maxFiles int) ([]UploadResponse, bool) {
	limits := h.service.Limits()
	if maxFiles <= 0 {
		maxFiles = 1
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxFiles)*limits.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, "File too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return nil, false
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return nil, false
	}
	if len(headers) > maxFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Too many files: at most %d allowed", maxFiles))
		return nil, false
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readUploadFile(fh, limits.MaxFileSize)
		if err != nil {
			if errors.Is(err, errUploadTooLarge) {
				writeError(w, http.StatusBadRequest, "File too large")
				return nil, false
			}
			writeError(w, http.StatusBadRequest, "Failed to read upload")
			return nil, false
		}
		files = append(files, file)
	}

	media, err := h.service.Upload(r.Context(), files)
	if err != nil {
		if services.IsUploadRejection(err) {
			writeError(w, http.StatusBadRequest, uploadRejectionMessage(err))
			return nil, false
		}
		h.logger.Error("upload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to upload image")
		return nil, false
	}

	out := make([]UploadResponse, 0, len(media))
	for _, m := range media {
		out = append(out, UploadResponse{ID: m.ID, URL: m.URL, Filename: m.Filename})
	}
	return out, true
}

// readUploadFile rejects a part by its declared size before reading it.
func readUploadFile(fh *multipart.FileHeader, limit int64) (services.UploadFile, error) {
	if limit > 0 && fh.Size > limit {
		return services.UploadFile{}, errUploadTooLarge
	}
	file, err := fh.Open()
	if err != nil {
		return services.UploadFile{}, err
	}
	defer file.Close()

	data, err := readFileLimited(file, limit)
	if err != nil {
		return services.UploadFile{}, err
	}
	return services.UploadFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(reader)
	}
	data, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errUploadTooLarge
	}
	return data, nil
}

func uploadRejectionMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNoFiles):
		return "No file uploaded"
	case errors.Is(err, services.ErrTooManyFiles):
		return "Too many files"
	case errors.Is(err, services.ErrFileTooLarge):
		return "File too large"
	case errors.Is(err, services.ErrUnsupportedType):
		return "Only image files are allowed"
	default:
		return "Invalid image file"
	}
}
