package handlers

import (
	"net/http"

	"github.com/devfolio/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var portfolioErrors = errorMessages{
	notFound: "Portfolio item not found",
	conflict: "A portfolio item with this title already exists",
	internal: "Failed to process portfolio request",
}

// PortfolioHandler provides HTTP handlers for portfolio items.
type PortfolioHandler struct {
	service *services.PortfolioService
	logger  *zap.Logger
}

func NewPortfolioHandler(service *services.PortfolioService, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{service: service, logger: logger}
}

// PortfolioRouter registers portfolio routes on the given router.
func PortfolioRouter(r chi.Router, service *services.PortfolioService, auth *Authenticator, logger *zap.Logger) {
	handler := NewPortfolioHandler(service, logger)

	r.Get("/", handler.List)
	r.With(auth.Admin).Get("/admin/all", handler.ListAll)
	r.With(auth.OptionalAuth).Get("/{id}", handler.Get)
	r.With(auth.Admin).Post("/", handler.Create)
	r.With(auth.Admin).Put("/{id}", handler.Update)
	r.With(auth.Admin).Patch("/{id}", handler.Update)
	r.With(auth.Admin).Delete("/{id}", handler.Delete)
}

// List returns published items. Query: category, featured.
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPublished(r.Context(), r.URL.Query().Get("category"), queryBool(r, "featured"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, portfolioErrors)
		return
	}
	writeData(w, http.StatusOK, items)
}

// ListAll returns every item including drafts.
func (h *PortfolioHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, portfolioErrors)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), services.ReadOptions{
		IncludeDrafts: isAdmin(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, portfolioErrors)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.PortfolioInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, h.logger, err, portfolioErrors)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch services.PortfolioPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err, portfolioErrors)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err, portfolioErrors)
		return
	}
	writeMessage(w, http.StatusOK, "Portfolio item deleted successfully")
}
