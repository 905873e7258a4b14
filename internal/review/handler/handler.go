// Package handler exposes the section review workflow over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"drs/internal/review"
	"drs/internal/status"
	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/httputil"
	"drs/pkg/requestcontext"
)

// Service is the review service surface the handler needs.
type Service interface {
	AddComment(ctx context.Context, trackingID id.TrackingID, section review.Section, decision int, text string, reviewerID id.ReviewerID, reviewerName string) error
	CurrentDecisions(ctx context.Context, trackingID id.TrackingID) (map[review.Section]review.Comment, error)
	History(ctx context.Context, trackingID id.TrackingID) ([]review.Comment, error)
	SubmitReview(ctx context.Context, trackingID id.TrackingID, reviewerID id.ReviewerID) (review.Outcome, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the review routes. Auth middleware is applied by the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cases/{trackingID}/review", h.handleCurrent)
	r.Get("/cases/{trackingID}/review/history", h.handleHistory)
	r.Post("/cases/{trackingID}/review/comments", h.handleAddComment)
	r.Post("/cases/{trackingID}/review/submit", h.handleSubmit)
}

type addCommentRequest struct {
	Section  string `json:"section"`
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

type sectionDecisionResponse struct {
	Section      string    `json:"section"`
	Decision     string    `json:"decision"`
	Comment      string    `json:"comment,omitempty"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
	DecidedAt    time.Time `json:"decided_at,omitzero"`
}

const notYetReviewed = "not yet reviewed"

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "trackingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decisions, err := h.service.CurrentDecisions(r.Context(), trackingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]sectionDecisionResponse, 0, len(review.Sections))
	for _, section := range review.Sections {
		entry, ok := decisions[section]
		if !ok {
			out = append(out, sectionDecisionResponse{
				Section:  string(section),
				Decision: notYetReviewed,
			})
			continue
		}
		name, _ := status.Name(entry.Status)
		out = append(out, sectionDecisionResponse{
			Section:      string(section),
			Decision:     name,
			Comment:      entry.Comment,
			ReviewerName: entry.ReviewerName,
			DecidedAt:    entry.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "trackingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	history, err := h.service.History(r.Context(), trackingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]sectionDecisionResponse, 0, len(history))
	for _, entry := range history {
		name, _ := status.Name(entry.Status)
		out = append(out, sectionDecisionResponse{
			Section:      string(entry.Section),
			Decision:     name,
			Comment:      entry.Comment,
			ReviewerName: entry.ReviewerName,
			DecidedAt:    entry.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
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

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	section, err := review.ParseSection(req.Section)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	decision, ok := status.ID(req.Decision)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown decision"))
		return
	}

	err = h.service.AddComment(ctx, trackingID, section, decision, req.Comment, reviewerID, requestcontext.UserName(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
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

	outcome, err := h.service.SubmitReview(ctx, trackingID, reviewerID)
	if err != nil {
		h.logger.WarnContext(ctx, "review submission failed",
			"tracking_id", trackingID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"outcome": outcome.String()})
}
