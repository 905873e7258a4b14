// Package handler exposes the device quota balance over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"drs/internal/quota"
	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/httputil"
	"drs/pkg/requestcontext"
)

// Service is the quota service surface the handler needs.
type Service interface {
	Check(ctx context.Context, userID id.UserID) (*quota.DeviceQuota, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/quota", h.handleCheck)
}

type quotaResponse struct {
	Registration   int `json:"registration"`
	Deregistration int `json:"deregistration"`
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	q, err := h.service.Check(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quotaResponse{
		Registration:   q.RegQuota,
		Deregistration: q.DeregQuota,
	})
}
