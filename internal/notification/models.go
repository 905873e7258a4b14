// Package notification records the messages generated for case owners when a
// review resolves or an aggregation fails. Delivery (email/SMS) is a separate
// concern handled by the background worker's sink.
package notification

import (
	"time"

	"github.com/google/uuid"

	id "drs/pkg/domain"
)

// Notification is a single message addressed to a case owner.
type Notification struct {
	ID         uuid.UUID
	UserID     id.UserID
	TrackingID id.TrackingID
	Subject    string
	Message    string
	Generated  time.Time
	Read       bool
}
