// Package quota tracks each user's remaining device registration and
// de-registration allowance. A quota is debited exactly once, at the moment a
// registration case is approved.
package quota

import (
	"time"

	id "drs/pkg/domain"
)

// Kind selects which allowance a debit applies to.
type Kind string

const (
	KindRegistration   Kind = "registration"
	KindDeregistration Kind = "deregistration"
)

// DeviceQuota is a user's remaining allowance.
type DeviceQuota struct {
	UserID     id.UserID
	RegQuota   int
	DeregQuota int
	UpdatedAt  time.Time
}

// Remaining returns the allowance for the given kind.
func (q DeviceQuota) Remaining(kind Kind) int {
	if kind == KindDeregistration {
		return q.DeregQuota
	}
	return q.RegQuota
}
