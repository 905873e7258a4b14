package review

import (
	"context"

	"drs/internal/audit"
	"drs/internal/cases"
	"drs/internal/compliance"
	"drs/internal/status"
	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
)

const autoReviewerName = "Auto"

// AutoReview resolves a case straight from its compliance summary, with no
// human in the loop. The summary must already be stored; a clean summary
// approves the case, anything else rejects it. Every section receives a
// synthetic ledger entry so the trail reads the same as a human review.
func (s *Service) AutoReview(ctx context.Context, trackingID id.TrackingID) error {
	c, err := s.getCase(ctx, trackingID)
	if err != nil {
		return err
	}
	if c.Status != status.PendingReview {
		return dErrors.New(dErrors.CodePreconditionFailed, "case is not pending review")
	}

	summary, err := compliance.DecodeSummary(c.Summary)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode summary")
	}
	if summary == nil {
		return dErrors.New(dErrors.CodePreconditionFailed, "case has no compliance summary")
	}

	outcome := OutcomeApproved
	detail := "all compliance checks clean"
	if !summaryClean(summary) {
		outcome = OutcomeRejected
		detail = "compliance summary reported findings"
	}

	// A clean summary can still hide devices that are already registered.
	if outcome == OutcomeApproved && c.Type == cases.TypeRegistration {
		duplicates, err := s.imeis.Duplicates(ctx, c.NormalizedIMEIs())
		if err != nil {
			return err
		}
		if len(duplicates) > 0 {
			outcome = OutcomeRejected
			detail = "duplicated imeis found"
			if s.duplicates != nil {
				if _, err := s.duplicates.WriteDuplicates(c.TrackingID, duplicates); err != nil {
					s.logger.ErrorContext(ctx, "failed to write duplicates file", "error", err)
				}
			}
		}
	}

	for _, section := range Sections {
		if err := s.appendComment(ctx, c, section, outcome.StatusCode(), detail, id.ReviewerID{}, autoReviewerName); err != nil {
			return err
		}
	}

	if err := s.applyOutcome(ctx, c, outcome); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncReviewOutcome(outcome.String())
	}
	s.emit(ctx, audit.Event{
		TrackingID: trackingID,
		Action:     audit.ActionCaseAutoReviewed,
		FromStatus: c.Status,
		ToStatus:   outcome.StatusCode(),
		Detail:     detail,
	})
	s.logger.InfoContext(ctx, "case auto-reviewed",
		"tracking_id", trackingID,
		"outcome", outcome,
	)
	return nil
}

// summaryClean reports whether the summary shows nothing that blocks an
// automatic approval.
func summaryClean(s *compliance.Summary) bool {
	return s.NonCompliant == 0 &&
		s.Stolen == 0 &&
		s.CompliantActive == 0 &&
		s.ProvisionalNonCompliant == 0 &&
		s.ProvisionalCompliant == 0
}
