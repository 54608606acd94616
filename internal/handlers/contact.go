package handlers

import (
	"net/http"

	"github.com/devfolio/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var contactErrors = errorMessages{
	notFound: "Contact message not found",
	internal: "Failed to process contact request",
}

// ContactHandler provides HTTP handlers for contact messages.
type ContactHandler struct {
	service *services.ContactService
	logger  *zap.Logger
}

func NewContactHandler(service *services.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{service: service, logger: logger}
}

// ContactRouter registers contact routes on the given router.
func ContactRouter(r chi.Router, service *services.ContactService, auth *Authenticator, logger *zap.Logger) {
	handler := NewContactHandler(service, logger)

	r.Post("/", handler.Submit)
	r.With(auth.Admin).Get("/", handler.List)
	r.With(auth.Admin).Put("/{id}/read", handler.MarkRead)
	r.With(auth.Admin).Patch("/{id}/read", handler.MarkRead)
	r.With(auth.Admin).Delete("/{id}", handler.Delete)
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var input services.ContactInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	contact, err := h.service.Submit(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, h.logger, err, contactErrors)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{
		Status:  statusSuccess,
		Message: "Message sent successfully",
		Data:    contact,
	})
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, contactErrors)
		return
	}
	writeData(w, http.StatusOK, contacts)
}

func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	contact, err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, contactErrors)
		return
	}
	writeData(w, http.StatusOK, contact)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err, contactErrors)
		return
	}
	writeMessage(w, http.StatusOK, "Contact message deleted successfully")
}
