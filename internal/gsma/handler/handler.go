// Package handler exposes GSMA TAC lookups over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"drs/internal/gsma"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/httputil"
)

// Service is the GSMA service surface the handler needs.
type Service interface {
	DeviceByTAC(ctx context.Context, tac string) (*gsma.Device, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/gsma/tac/{tac}", h.handleLookup)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	device, err := h.service.DeviceByTAC(r.Context(), chi.URLParam(r, "tac"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if device == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "tac not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, device)
}
