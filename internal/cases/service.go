package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"drs/internal/audit"
	"drs/internal/compliance"
	"drs/internal/status"
	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/sentinel"
	"drs/pkg/requestcontext"
)

// Aggregator is the slice of the compliance pipeline the case service needs.
type Aggregator interface {
	Aggregate(ctx context.Context, trackingID id.TrackingID, imeis []id.IMEI) (*compliance.Summary, error)
}

// PendingRegistrar records a case's IMEIs as pending whitelist entries.
type PendingRegistrar interface {
	RegisterPending(ctx context.Context, caseID id.CaseID, normalized []string) error
}

// Notifier delivers messages to case owners.
type Notifier interface {
	Notify(ctx context.Context, userID id.UserID, trackingID id.TrackingID, subject, message string) error
}

// Auditor records case trail events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AutoReviewer resolves a case from its compliance summary without a human
// reviewer. Set after construction to break the dependency cycle with the
// review service.
type AutoReviewer interface {
	AutoReview(ctx context.Context, trackingID id.TrackingID) error
}

// Metrics is the slice of platform metrics the case service reports to.
type Metrics interface {
	IncCasesCreated(caseType string)
}

// Service drives the case lifecycle from creation through device submission
// and compliance aggregation, up to the point the review service takes over.
type Service struct {
	store      Store
	imeis      PendingRegistrar
	aggregator Aggregator
	notifier   Notifier
	auditor    Auditor
	metrics    Metrics
	logger     *slog.Logger
	autoReview AutoReviewer
	automated  bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithAutomatedReview makes the service hand completed aggregations straight
// to the auto-reviewer instead of waiting for human section reviews.
func WithAutomatedReview(automated bool) Option {
	return func(s *Service) {
		s.automated = automated
	}
}

func New(store Store, imeis PendingRegistrar, aggregator Aggregator, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("case store is required")
	}
	if imeis == nil {
		return nil, fmt.Errorf("imei registrar is required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	svc := &Service{
		store:      store,
		imeis:      imeis,
		aggregator: aggregator,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SetAutoReviewer wires the review service in after both are constructed.
func (s *Service) SetAutoReviewer(r AutoReviewer) {
	s.autoReview = r
}

// Create opens a new case in the New Request status.
func (s *Service) Create(ctx context.Context, caseType Type, channel Channel, userID id.UserID, userName string) (*Case, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if userName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_name is required")
	}
	if channel == "" {
		channel = ChannelWeb
	}

	now := requestcontext.Now(ctx)
	c := &Case{
		TrackingID:       id.NewTrackingID(),
		Type:             caseType,
		Channel:          channel,
		UserID:           userID,
		UserName:         userName,
		Status:           status.NewRequest,
		ProcessingStatus: status.NewRequest,
		ReportStatus:     status.NewRequest,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case")
	}

	if s.metrics != nil {
		s.metrics.IncCasesCreated(string(caseType))
	}
	s.emit(ctx, audit.Event{
		TrackingID: c.TrackingID,
		Action:     audit.ActionCaseCreated,
		ActorID:    userID.String(),
		ToStatus:   status.NewRequest,
	})
	s.logger.InfoContext(ctx, "case created",
		"tracking_id", c.TrackingID,
		"case_type", caseType,
		"user_id", userID,
	)
	return c, nil
}

// Get returns a case by tracking id.
func (s *Service) Get(ctx context.Context, trackingID id.TrackingID) (*Case, error) {
	if trackingID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tracking_id is required")
	}
	c, err := s.store.Get(ctx, trackingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "case not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get case")
	}
	return c, nil
}

// ListByUser returns the user's cases.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*Case, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return out, nil
}

// AttachDevices adds the submitted devices to a New Request case, registers
// their IMEIs as pending whitelist entries, and moves the case to Awaiting
// Documents. Compliance aggregation is started separately via
// ProcessCompliance.
func (s *Service) AttachDevices(ctx context.Context, trackingID id.TrackingID, devices []Device) (*Case, error) {
	if len(devices) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one device is required")
	}
	for _, d := range devices {
		if len(d.IMEIs) == 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "every device needs at least one imei")
		}
	}

	c, err := s.Get(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if c.Status != status.NewRequest {
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "devices can only be attached to a new request")
	}

	if err := s.store.AttachDevices(ctx, trackingID, devices); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach devices")
	}

	c, err = s.Get(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if c.Type == TypeRegistration {
		if err := s.imeis.RegisterPending(ctx, c.ID, c.NormalizedIMEIs()); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateStatus(ctx, trackingID, status.AwaitingDocuments); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case status")
	}
	c.Status = status.AwaitingDocuments

	s.emit(ctx, audit.Event{
		TrackingID: trackingID,
		Action:     audit.ActionDevicesAttached,
		ActorID:    c.UserID.String(),
		FromStatus: status.NewRequest,
		ToStatus:   status.AwaitingDocuments,
		Detail:     fmt.Sprintf("%d devices, %d imeis", len(devices), len(c.IMEIs())),
	})
	return c, nil
}

// ProcessCompliance runs the aggregation pipeline for a case and stores the
// summary. When the deployment is configured for automated review, or the
// case arrived over USSD, it is handed to the auto-reviewer right after a
// successful run; otherwise it moves to Pending Review for a human reviewer
// to claim.
func (s *Service) ProcessCompliance(ctx context.Context, trackingID id.TrackingID) error {
	c, err := s.Get(ctx, trackingID)
	if err != nil {
		return err
	}
	if c.Status != status.AwaitingDocuments {
		return dErrors.New(dErrors.CodePreconditionFailed, "case is not awaiting processing")
	}

	if err := s.store.UpdatePipelineStatus(ctx, trackingID, status.Processing, status.Processing); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark case processing")
	}

	summary, err := s.aggregator.Aggregate(ctx, trackingID, c.IMEIs())
	if err != nil {
		s.markAggregationFailed(ctx, c, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "compliance aggregation failed")
	}

	encoded, err := summary.Encode()
	if err != nil {
		s.markAggregationFailed(ctx, c, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode summary")
	}
	if err := s.store.SetSummary(ctx, trackingID, encoded, summary.CompliantReportName, true); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store summary")
	}
	if err := s.store.UpdatePipelineStatus(ctx, trackingID, status.Processed, status.Processed); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark case processed")
	}
	if err := s.store.UpdateStatus(ctx, trackingID, status.PendingReview); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case status")
	}

	s.logger.InfoContext(ctx, "compliance summary stored",
		"tracking_id", trackingID,
		"verified", summary.VerifiedIMEI,
	)

	if (s.automated || c.Channel == ChannelUSSD) && s.autoReview != nil {
		return s.autoReview.AutoReview(ctx, trackingID)
	}
	return nil
}

// AssignReviewer claims a Pending Review case for a reviewer.
func (s *Service) AssignReviewer(ctx context.Context, trackingID id.TrackingID, reviewerID id.ReviewerID, reviewerName string) error {
	if reviewerID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "reviewer_id is required")
	}

	c, err := s.Get(ctx, trackingID)
	if err != nil {
		return err
	}
	if c.Status != status.PendingReview {
		return dErrors.New(dErrors.CodePreconditionFailed, "case is not pending review")
	}

	if err := s.store.SetReviewer(ctx, trackingID, reviewerID, reviewerName); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign reviewer")
	}
	if err := s.store.UpdateStatus(ctx, trackingID, status.InReview); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case status")
	}

	s.emit(ctx, audit.Event{
		TrackingID: trackingID,
		Action:     audit.ActionReviewerAssigned,
		ActorID:    reviewerID.String(),
		FromStatus: status.PendingReview,
		ToStatus:   status.InReview,
	})
	return nil
}

// Resubmit returns an Information Requested case to its reviewer after the
// owner has responded. The case keeps its reviewer, who can amend the section
// decisions and submit again.
func (s *Service) Resubmit(ctx context.Context, trackingID id.TrackingID, userID id.UserID) error {
	c, err := s.Get(ctx, trackingID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return dErrors.New(dErrors.CodeForbidden, "case belongs to another user")
	}
	if c.Status != status.InformationRequested {
		return dErrors.New(dErrors.CodePreconditionFailed, "case has no pending information request")
	}

	if err := s.store.UpdateStatus(ctx, trackingID, status.InReview); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case status")
	}

	s.emit(ctx, audit.Event{
		TrackingID: trackingID,
		Action:     audit.ActionCaseResubmitted,
		ActorID:    userID.String(),
		FromStatus: status.InformationRequested,
		ToStatus:   status.InReview,
	})
	s.logger.InfoContext(ctx, "case resubmitted",
		"tracking_id", trackingID,
		"user_id", userID,
	)
	return nil
}

// Close moves a case to Closed. Approved, Rejected, and In Review cases
// cannot be closed directly.
func (s *Service) Close(ctx context.Context, trackingID id.TrackingID, userID id.UserID) error {
	c, err := s.Get(ctx, trackingID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return dErrors.New(dErrors.CodeForbidden, "case belongs to another user")
	}
	if !status.CanClose(c.Status) {
		name, _ := status.Name(c.Status)
		return dErrors.New(dErrors.CodePreconditionFailed,
			fmt.Sprintf("case in status %q cannot be closed", name))
	}

	if err := s.store.UpdateStatus(ctx, trackingID, status.Closed); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close case")
	}

	s.emit(ctx, audit.Event{
		TrackingID: trackingID,
		Action:     audit.ActionCaseClosed,
		ActorID:    userID.String(),
		FromStatus: c.Status,
		ToStatus:   status.Closed,
	})
	return nil
}

func (s *Service) markAggregationFailed(ctx context.Context, c *Case, cause error) {
	if err := s.store.UpdatePipelineStatus(ctx, c.TrackingID, status.Failed, status.Failed); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark case failed",
			"tracking_id", c.TrackingID,
			"error", err,
		)
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, c.UserID, c.TrackingID,
			"case processing failed",
			"your request could not be processed; support has been notified"); err != nil {
			s.logger.ErrorContext(ctx, "failed to notify owner", "error", err)
		}
	}
	s.emit(ctx, audit.Event{
		TrackingID: c.TrackingID,
		Action:     audit.ActionAggregationFailed,
		ToStatus:   status.Failed,
		Detail:     cause.Error(),
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to record case trail event", "error", err)
	}
}
