// Package review owns the section-based review process: the append-only
// comment ledger, the decision engine that computes a case's outcome from the
// section decisions, and the transactional side effects of that outcome.
package review

import (
	"time"

	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
)

// Section is one of the fixed review checkpoints every case passes through.
type Section string

const (
	SectionDeviceQuota        Section = "device_quota"
	SectionDeviceDescription  Section = "device_description"
	SectionIMEIClassification Section = "imei_classification"
	SectionIMEIRegistration   Section = "imei_registration"
	SectionApprovalDocuments  Section = "approval_documents"
)

// Sections lists every checkpoint in review order.
var Sections = []Section{
	SectionDeviceQuota,
	SectionDeviceDescription,
	SectionIMEIClassification,
	SectionIMEIRegistration,
	SectionApprovalDocuments,
}

func ParseSection(s string) (Section, error) {
	for _, section := range Sections {
		if Section(s) == section {
			return section, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown review section")
}

// Comment is one ledger entry: a reviewer's decision on one section of one
// case. Entries are append-only; the latest entry per (case, section) pair is
// the section's current decision.
type Comment struct {
	ID           int64
	CaseID       id.CaseID
	Section      Section
	Status       int
	Comment      string
	ReviewerID   id.ReviewerID
	ReviewerName string
	CreatedAt    time.Time
}
