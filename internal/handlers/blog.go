package handlers

import (
	"net/http"

	"github.com/devfolio/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var blogErrors = errorMessages{
	notFound: "Blog post not found",
	conflict: "A blog post with this title already exists",
	internal: "Failed to process blog request",
}

// BlogHandler provides HTTP handlers for blog posts.
type BlogHandler struct {
	service *services.BlogService
	logger  *zap.Logger
}

func NewBlogHandler(service *services.BlogService, logger *zap.Logger) *BlogHandler {
	return &BlogHandler{service: service, logger: logger}
}

// BlogRouter registers blog routes on the given router.
func BlogRouter(r chi.Router, service *services.BlogService, auth *Authenticator, logger *zap.Logger) {
	handler := NewBlogHandler(service, logger)

	r.Get("/", handler.List)
	r.With(auth.Admin).Get("/admin/all", handler.ListAll)
	r.With(auth.OptionalAuth).Get("/{id}", handler.Get)
	r.With(auth.Admin).Post("/", handler.Create)
	r.With(auth.Admin).Put("/{id}", handler.Update)
	r.With(auth.Admin).Patch("/{id}", handler.Update)
	r.With(auth.Admin).Delete("/{id}", handler.Delete)
}

// List returns published posts. Query: category, tag, featured.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posts, err := h.service.ListPublished(r.Context(), q.Get("category"), q.Get("tag"), queryBool(r, "featured"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, blogErrors)
		return
	}
	writeData(w, http.StatusOK, posts)
}

func (h *BlogHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, blogErrors)
		return
	}
	writeData(w, http.StatusOK, posts)
}

func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), services.ReadOptions{
		IncludeDrafts: isAdmin(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, blogErrors)
		return
	}
	writeData(w, http.StatusOK, post)
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.BlogInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	post, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, h.logger, err, blogErrors)
		return
	}
	writeData(w, http.StatusCreated, post)
}

func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch services.BlogPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	post, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err, blogErrors)
		return
	}
	writeData(w, http.StatusOK, post)
}

func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err, blogErrors)
		return
	}
	writeMessage(w, http.StatusOK, "Blog post deleted successfully")
}
