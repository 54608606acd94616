package handlers

import (
	"net/http"
	"strings"

	"github.com/devfolio/apiserver/internal/services"
	"go.uber.org/zap"
)

// SitemapHandler serves a sitemap rendered for the requesting host.
type SitemapHandler struct {
	service *services.SitemapService
	logger  *zap.Logger
}

func NewSitemapHandler(service *services.SitemapService, logger *zap.Logger) *SitemapHandler {
	return &SitemapHandler{service: service, logger: logger}
}

func (h *SitemapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.Render(r.Context(), requestBaseURL(r))
	if err != nil {
		h.logger.Error("render sitemap failed", zap.Error(err))
		http.Error(w, "Error generating sitemap", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// requestBaseURL honors X-Forwarded-Proto from a fronting proxy.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		proto = strings.ToLower(strings.TrimSpace(strings.SplitN(proto, ",", 2)[0]))
		if proto == "http" || proto == "https" {
			scheme = proto
		}
	}
	return scheme + "://" + r.Host
}
