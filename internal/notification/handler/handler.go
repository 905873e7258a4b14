// Package handler exposes the owner notification feed over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"drs/internal/notification"
	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/httputil"
	"drs/pkg/requestcontext"
)

// Service is the notification service surface the handler needs.
type Service interface {
	List(ctx context.Context, userID id.UserID) ([]notification.Notification, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Post("/notifications/{notificationID}/read", h.handleMarkRead)
}

type notificationResponse struct {
	ID         string    `json:"id"`
	TrackingID string    `json:"tracking_id,omitempty"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Generated  time.Time `json:"generated"`
	Read       bool      `json:"read"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	list, err := h.service.List(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		resp := notificationResponse{
			ID:        n.ID.String(),
			Subject:   n.Subject,
			Message:   n.Message,
			Generated: n.Generated,
			Read:      n.Read,
		}
		if !n.TrackingID.IsNil() {
			resp.TrackingID = n.TrackingID.String()
		}
		out = append(out, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if requestcontext.UserID(ctx).IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	notificationID, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "notification id must be a uuid"))
		return
	}
	if err := h.service.MarkRead(ctx, notificationID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
