package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"drs/internal/audit"
	"drs/internal/cases"
	"drs/internal/quota"
	"drs/internal/status"
	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/sentinel"
	"drs/pkg/platform/tx"
	"drs/pkg/requestcontext"
)

// CaseStore is the slice of the case store the review service writes through.
// Approved and Rejected are only ever written here; the case service never
// sets them itself.
type CaseStore interface {
	Get(ctx context.Context, trackingID id.TrackingID) (*cases.Case, error)
	UpdateStatus(ctx context.Context, trackingID id.TrackingID, status int) error
	UpdatePipelineStatus(ctx context.Context, trackingID id.TrackingID, processingStatus, reportStatus int) error
}

// IMEIRegistry is the slice of the IMEI approval service an outcome needs.
type IMEIRegistry interface {
	Duplicates(ctx context.Context, normalized []string) ([]string, error)
	InvalidForDeregistration(ctx context.Context, normalized []string) ([]string, error)
	Promote(ctx context.Context, normalized []string) error
	Remove(ctx context.Context, normalized []string) error
}

// QuotaDebitor debits a user's device allowance on approval.
type QuotaDebitor interface {
	Debit(ctx context.Context, userID id.UserID, kind quota.Kind, count int) (*quota.DeviceQuota, error)
}

// Notifier delivers messages to case owners.
type Notifier interface {
	Notify(ctx context.Context, userID id.UserID, trackingID id.TrackingID, subject, message string) error
}

// Auditor records case trail events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// DuplicateReporter writes the duplicate-IMEIs file when an approval is
// blocked.
type DuplicateReporter interface {
	WriteDuplicates(trackingID id.TrackingID, normalized []string) (string, error)
}

// Metrics is the slice of platform metrics the review service reports to.
type Metrics interface {
	IncReviewOutcome(outcome string)
}

// Service drives reviews: it appends section decisions to the ledger,
// computes the case outcome, and applies the outcome's side effects as one
// transaction.
type Service struct {
	ledger     Store
	caseStore  CaseStore
	imeis      IMEIRegistry
	quotas     QuotaDebitor
	notifier   Notifier
	auditor    Auditor
	duplicates DuplicateReporter
	runner     tx.Runner
	metrics    Metrics
	logger     *slog.Logger
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

func WithDuplicateReporter(reporter DuplicateReporter) Option {
	return func(s *Service) {
		s.duplicates = reporter
	}
}

func New(ledger Store, caseStore CaseStore, imeis IMEIRegistry, quotas QuotaDebitor, runner tx.Runner, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("comment ledger is required")
	}
	if caseStore == nil {
		return nil, fmt.Errorf("case store is required")
	}
	if imeis == nil {
		return nil, fmt.Errorf("imei registry is required")
	}
	if quotas == nil {
		return nil, fmt.Errorf("quota debitor is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	svc := &Service{
		ledger:    ledger,
		caseStore: caseStore,
		imeis:     imeis,
		quotas:    quotas,
		runner:    runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// decisionCodes are the status codes a section decision may carry.
func validDecision(code int) bool {
	switch code {
	case status.Approved, status.Rejected, status.InformationRequested:
		return true
	default:
		return false
	}
}

// AddComment appends a reviewer's decision for one section to the ledger.
func (s *Service) AddComment(ctx context.Context, trackingID id.TrackingID, section Section, decision int, text string, reviewerID id.ReviewerID, reviewerName string) error {
	if _, err := ParseSection(string(section)); err != nil {
		return err
	}
	if !validDecision(decision) {
		return dErrors.New(dErrors.CodeInvalidInput, "decision must be approved, rejected, or information requested")
	}

	c, err := s.getCase(ctx, trackingID)
	if err != nil {
		return err
	}
	if c.Status != status.InReview {
		return dErrors.New(dErrors.CodePreconditionFailed, "case is not in review")
	}
	if c.ReviewerID != reviewerID {
		return dErrors.New(dErrors.CodeForbidden, "invalid reviewer")
	}

	return s.appendComment(ctx, c, section, decision, text, reviewerID, reviewerName)
}

// CurrentDecisions returns the latest ledger entry per section for a case.
func (s *Service) CurrentDecisions(ctx context.Context, trackingID id.TrackingID) (map[Section]Comment, error) {
	c, err := s.getCase(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	decisions, err := s.ledger.Current(ctx, c.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read section decisions")
	}
	return decisions, nil
}

// History returns the full ledger for a case, oldest first.
func (s *Service) History(ctx context.Context, trackingID id.TrackingID) ([]Comment, error) {
	c, err := s.getCase(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	comments, err := s.ledger.ListByCase(ctx, c.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read comment history")
	}
	return comments, nil
}

// SubmitReview computes the case outcome from the current section decisions
// and applies it. All side effects of an outcome commit or roll back as one
// transaction; a rolled-back attempt additionally marks the case pipeline
// Failed in a separate transaction and notifies the owner.
func (s *Service) SubmitReview(ctx context.Context, trackingID id.TrackingID, reviewerID id.ReviewerID) (Outcome, error) {
	c, err := s.getCase(ctx, trackingID)
	if err != nil {
		return 0, err
	}
	if err := s.checkSubmittable(c, reviewerID); err != nil {
		return 0, err
	}

	decisions, err := s.ledger.Current(ctx, c.ID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read section decisions")
	}
	outcome, err := Evaluate(decisions)
	if err != nil {
		return 0, err
	}

	if err := s.applyOutcome(ctx, c, outcome); err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.IncReviewOutcome(outcome.String())
	}
	s.emit(ctx, audit.Event{
		TrackingID: trackingID,
		Action:     audit.ActionReviewSubmitted,
		ActorID:    reviewerID.String(),
		FromStatus: c.Status,
		ToStatus:   outcome.StatusCode(),
	})
	s.logger.InfoContext(ctx, "review submitted",
		"tracking_id", trackingID,
		"reviewer_id", reviewerID,
		"outcome", outcome,
	)
	return outcome, nil
}

func (s *Service) checkSubmittable(c *cases.Case, reviewerID id.ReviewerID) error {
	switch c.Status {
	case status.Approved:
		return dErrors.New(dErrors.CodePreconditionFailed, "case is already approved and cannot be entertained")
	case status.Rejected:
		return dErrors.New(dErrors.CodePreconditionFailed, "case is already rejected and cannot be entertained")
	case status.Closed:
		return dErrors.New(dErrors.CodePreconditionFailed, "case is closed and cannot be entertained")
	}
	if c.ReviewerID != reviewerID {
		return dErrors.New(dErrors.CodeForbidden, "invalid reviewer")
	}
	return nil
}

// applyOutcome runs the outcome's side effects in one transaction.
func (s *Service) applyOutcome(ctx context.Context, c *cases.Case, outcome Outcome) error {
	switch outcome {
	case OutcomeRejected:
		return s.applyRejection(ctx, c)
	case OutcomeInformationRequested:
		return s.applyInformationRequest(ctx, c)
	default:
		return s.applyApproval(ctx, c)
	}
}

// applyRejection moves the case to Rejected. Pending whitelist records for a
// rejected registration case are left as they are so the devices can be
// resubmitted; re-rejecting has no further effect on them.
func (s *Service) applyRejection(ctx context.Context, c *cases.Case) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.caseStore.UpdateStatus(ctx, c.TrackingID, status.Rejected); err != nil {
			return err
		}
		return s.notify(ctx, c, "case rejected", "your request was rejected during review")
	})
	if err != nil {
		return s.markFailed(ctx, c, err)
	}
	return nil
}

func (s *Service) applyInformationRequest(ctx context.Context, c *cases.Case) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.caseStore.UpdateStatus(ctx, c.TrackingID, status.InformationRequested); err != nil {
			return err
		}
		return s.notify(ctx, c, "information requested", "a reviewer needs more information on your request")
	})
	if err != nil {
		return s.markFailed(ctx, c, err)
	}
	return nil
}

func (s *Service) applyApproval(ctx context.Context, c *cases.Case) error {
	normalized := c.NormalizedIMEIs()

	if c.Type == cases.TypeRegistration {
		duplicates, err := s.imeis.Duplicates(ctx, normalized)
		if err != nil {
			return err
		}
		if len(duplicates) > 0 {
			if s.duplicates != nil {
				if _, err := s.duplicates.WriteDuplicates(c.TrackingID, duplicates); err != nil {
					s.logger.ErrorContext(ctx, "failed to write duplicates file", "error", err)
				}
			}
			return dErrors.New(dErrors.CodeConflict, "duplicated imeis found")
		}

		err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
			if _, err := s.quotas.Debit(ctx, c.UserID, quota.KindRegistration, len(normalized)); err != nil {
				return err
			}
			if err := s.imeis.Promote(ctx, normalized); err != nil {
				return err
			}
			if err := s.caseStore.UpdateStatus(ctx, c.TrackingID, status.Approved); err != nil {
				return err
			}
			return s.notify(ctx, c, "case approved", "your registration request was approved")
		})
		if err != nil {
			return s.markFailed(ctx, c, err)
		}
		return nil
	}

	invalid, err := s.imeis.InvalidForDeregistration(ctx, normalized)
	if err != nil {
		return err
	}
	if len(invalid) > 0 {
		return dErrors.New(dErrors.CodePreconditionFailed, "invalid imeis found")
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.imeis.Remove(ctx, normalized); err != nil {
			return err
		}
		if err := s.caseStore.UpdateStatus(ctx, c.TrackingID, status.Approved); err != nil {
			return err
		}
		return s.notify(ctx, c, "case approved", "your de-registration request was approved")
	})
	if err != nil {
		return s.markFailed(ctx, c, err)
	}
	return nil
}

// markFailed records a rolled-back outcome: the pipeline statuses flip to
// Failed in their own transaction and the owner is told. The original error
// is returned wrapped.
func (s *Service) markFailed(ctx context.Context, c *cases.Case, cause error) error {
	if err := s.caseStore.UpdatePipelineStatus(ctx, c.TrackingID, status.Failed, status.Failed); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark case failed",
			"tracking_id", c.TrackingID,
			"error", err,
		)
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, c.UserID, c.TrackingID,
			"review processing failed",
			"your request could not be resolved; support has been notified"); err != nil {
			s.logger.ErrorContext(ctx, "failed to notify owner", "error", err)
		}
	}
	s.emit(ctx, audit.Event{
		TrackingID: c.TrackingID,
		Action:     audit.ActionCaseFailed,
		ToStatus:   status.Failed,
		Detail:     cause.Error(),
	})
	return dErrors.Wrap(cause, dErrors.CodeInternal, "failed to apply review outcome")
}

func (s *Service) appendComment(ctx context.Context, c *cases.Case, section Section, decision int, text string, reviewerID id.ReviewerID, reviewerName string) error {
	entry := Comment{
		CaseID:       c.ID,
		Section:      section,
		Status:       decision,
		Comment:      text,
		ReviewerID:   reviewerID,
		ReviewerName: reviewerName,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append section comment")
	}
	return nil
}

func (s *Service) getCase(ctx context.Context, trackingID id.TrackingID) (*cases.Case, error) {
	if trackingID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tracking_id is required")
	}
	c, err := s.caseStore.Get(ctx, trackingID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return c, nil
}

func translateNotFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "case not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to get case")
}

func (s *Service) notify(ctx context.Context, c *cases.Case, subject, message string) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Notify(ctx, c.UserID, c.TrackingID, subject, message)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to record case trail event", "error", err)
	}
}
