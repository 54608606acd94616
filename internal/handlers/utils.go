package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	maxJSONBodyBytes = 1 << 20
)

// Envelope is the shape of every API response body.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Status: statusSuccess, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Status: statusSuccess, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Status: statusError, Message: message})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// errorMessages holds the client-facing text for one resource.
type errorMessages struct {
	notFound string
	conflict string
	internal string
}

// writeServiceError maps service and store errors to responses. Anything
// unrecognized is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, msgs errorMessages) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrSlugTaken):
		writeError(w, http.StatusBadRequest, msgs.conflict)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgs.notFound)
	default:
		logger.Error(msgs.internal,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgs.internal)
	}
}

func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
