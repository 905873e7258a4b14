// Package handler exposes the case lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"drs/internal/cases"
	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/httputil"
	"drs/pkg/requestcontext"
)

// Service is the case service surface the handler needs.
type Service interface {
	Create(ctx context.Context, caseType cases.Type, channel cases.Channel, userID id.UserID, userName string) (*cases.Case, error)
	Get(ctx context.Context, trackingID id.TrackingID) (*cases.Case, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*cases.Case, error)
	AttachDevices(ctx context.Context, trackingID id.TrackingID, devices []cases.Device) (*cases.Case, error)
	ProcessCompliance(ctx context.Context, trackingID id.TrackingID) error
	AssignReviewer(ctx context.Context, trackingID id.TrackingID, reviewerID id.ReviewerID, reviewerName string) error
	Resubmit(ctx context.Context, trackingID id.TrackingID, userID id.UserID) error
	Close(ctx context.Context, trackingID id.TrackingID, userID id.UserID) error
}

type Handler struct {
	service    Service
	logger     *slog.Logger
	uploadsDir string
}

func New(service Service, logger *slog.Logger, uploadsDir string) *Handler {
	return &Handler{service: service, logger: logger, uploadsDir: uploadsDir}
}

// Register mounts the case routes. Auth middleware is applied by the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases", h.handleCreate)
	r.Get("/cases", h.handleList)
	r.Get("/cases/{trackingID}", h.handleGet)
	r.Post("/cases/{trackingID}/devices", h.handleAttachDevices)
	r.Post("/cases/{trackingID}/process", h.handleProcess)
	r.Get("/cases/{trackingID}/report", h.handleReport)
	r.Post("/cases/{trackingID}/assign", h.handleAssign)
	r.Post("/cases/{trackingID}/resubmit", h.handleResubmit)
	r.Post("/cases/{trackingID}/close", h.handleClose)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	caseType, err := cases.ParseType(req.CaseType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	channel, err := cases.ParseChannel(req.Channel)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Create(ctx, caseType, channel, userID, requestcontext.UserName(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create case", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCaseResponse(c))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	list, err := h.service.ListByUser(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]caseResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCaseResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "trackingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Get(r.Context(), trackingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

// handleAttachDevices attaches the submitted devices and runs the compliance
// pipeline before replying, so the caller sees the post-aggregation case.
func (h *Handler) handleAttachDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "trackingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req attachDevicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	devices, err := req.toDevices()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.service.AttachDevices(ctx, trackingID, devices); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.ProcessCompliance(ctx, trackingID); err != nil {
		h.logger.ErrorContext(ctx, "compliance processing failed",
			"tracking_id", trackingID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Get(ctx, trackingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

// handleProcess re-runs the compliance pipeline, typically after an earlier
// aggregation attempt left the case Failed.
func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "trackingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.ProcessCompliance(ctx, trackingID); err != nil {
		h.logger.ErrorContext(ctx, "compliance processing failed",
			"tracking_id", trackingID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Get(ctx, trackingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

// handleReport serves the stored compliance report. The assigned reviewer
// gets the full report; the case owner gets the user copy with the sensitive
// columns dropped.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "trackingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Get(ctx, trackingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !c.ReportAllowed || c.Report == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no report available for this case"))
		return
	}

	name := ""
	switch {
	case !requestcontext.ReviewerID(ctx).IsNil() && requestcontext.ReviewerID(ctx) == c.ReviewerID:
		name = c.Report
	case requestcontext.UserID(ctx) == c.UserID:
		name = "user_report-" + c.Report
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "case belongs to another user"))
		return
	}

	w.Header().Set("Content-Type", "text/tab-separated-values")
	http.ServeFile(w, r, filepath.Join(h.uploadsDir, trackingID.String(), name))
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "trackingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reviewerID := requestcontext.ReviewerID(ctx)
	if reviewerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "reviewer role required"))
		return
	}

	if err := h.service.AssignReviewer(ctx, trackingID, reviewerID, requestcontext.UserName(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResubmit lets the owner answer an information request, putting the
// case back in front of its reviewer.
func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "trackingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.service.Resubmit(ctx, trackingID, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "trackingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.service.Close(ctx, trackingID, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
