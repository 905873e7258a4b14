// Package audit keeps the case trail: every state transition and review
// decision recorded against the tracking id that produced it.
package audit

import (
	"time"

	id "drs/pkg/domain"
)

// Action identifies what happened to a case.
type Action string

const (
	ActionCaseCreated       Action = "case_created"
	ActionDevicesAttached   Action = "devices_attached"
	ActionReviewerAssigned  Action = "reviewer_assigned"
	ActionReviewSubmitted   Action = "review_submitted"
	ActionCaseResubmitted   Action = "case_resubmitted"
	ActionCaseAutoReviewed  Action = "case_auto_reviewed"
	ActionCaseClosed        Action = "case_closed"
	ActionCaseFailed        Action = "case_failed"
	ActionQuotaDebited      Action = "quota_debited"
	ActionWhitelistUpdated  Action = "whitelist_updated"
	ActionAggregationFailed Action = "aggregation_failed"
)

// Event is one entry in a case's trail. ActorID is the user or reviewer who
// triggered the action; system-initiated entries leave it empty.
type Event struct {
	Timestamp  time.Time
	TrackingID id.TrackingID
	Action     Action
	ActorID    string
	FromStatus int
	ToStatus   int
	Detail     string
	RequestID  string
}
