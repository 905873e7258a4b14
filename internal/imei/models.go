// Package imei tracks the approval state of every normalized IMEI known to the
// system. Records are shared across cases: a device rejected in one request can
// be resubmitted in another, and a de-registered device can be registered again.
package imei

import (
	"time"

	id "drs/pkg/domain"
)

// ApprovalStatus is the lifecycle state of a normalized IMEI.
type ApprovalStatus string

const (
	StatusPending   ApprovalStatus = "pending"
	StatusWhitelist ApprovalStatus = "whitelist"
	StatusRemoved   ApprovalStatus = "removed"
)

// DeltaStatus records the pending list operation for downstream sync.
type DeltaStatus string

const (
	DeltaAdd    DeltaStatus = "add"
	DeltaUpdate DeltaStatus = "update"
	DeltaRemove DeltaStatus = "remove"
)

// Record is the single live approval entry for a normalized IMEI.
// Invariant: at most one record per normalized IMEI.
type Record struct {
	Normalized string
	Status     ApprovalStatus
	Delta      DeltaStatus
	CaseID     id.CaseID
	UpdatedAt  time.Time
}
