package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drs/internal/status"
	dErrors "drs/pkg/domain-errors"
)

func decisions(codes map[Section]int) map[Section]Comment {
	out := make(map[Section]Comment, len(codes))
	for section, code := range codes {
		out[section] = Comment{Section: section, Status: code}
	}
	return out
}

func allSections(code int) map[Section]int {
	out := make(map[Section]int, len(Sections))
	for _, section := range Sections {
		out[section] = code
	}
	return out
}

func TestEvaluate(t *testing.T) {
	t.Run("all sections approved", func(t *testing.T) {
		outcome, err := Evaluate(decisions(allSections(status.Approved)))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApproved, outcome)
	})

	t.Run("missing section blocks the review", func(t *testing.T) {
		codes := allSections(status.Approved)
		delete(codes, SectionApprovalDocuments)

		_, err := Evaluate(decisions(codes))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePreconditionFailed))
		assert.Contains(t, err.Error(), "complete the review process")
	})

	t.Run("rejection dominates a mixed review", func(t *testing.T) {
		codes := allSections(status.Approved)
		codes[SectionIMEIClassification] = status.Rejected
		codes[SectionDeviceQuota] = status.InformationRequested

		outcome, err := Evaluate(decisions(codes))
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, outcome)
	})

	t.Run("information request beats approval", func(t *testing.T) {
		codes := allSections(status.Approved)
		codes[SectionDeviceDescription] = status.InformationRequested

		outcome, err := Evaluate(decisions(codes))
		require.NoError(t, err)
		assert.Equal(t, OutcomeInformationRequested, outcome)
	})

	t.Run("non-decision codes do not pass", func(t *testing.T) {
		codes := allSections(status.Approved)
		codes[SectionDeviceQuota] = status.Processing

		_, err := Evaluate(decisions(codes))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePreconditionFailed))
	})
}

func TestOutcomeStatusCode(t *testing.T) {
	assert.Equal(t, status.Rejected, OutcomeRejected.StatusCode())
	assert.Equal(t, status.InformationRequested, OutcomeInformationRequested.StatusCode())
	assert.Equal(t, status.Approved, OutcomeApproved.StatusCode())
}
