// Package domain holds the typed identifiers and device-identity value objects
// shared across services. IDs are distinct Go types so a reviewer ID can never
// be passed where a case owner ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "drs/pkg/domain-errors"
)

// UserID identifies the importer/exporter that owns a case.
type UserID uuid.UUID

// ReviewerID identifies the reviewer assigned to a case.
type ReviewerID uuid.UUID

// TrackingID is the public identifier of a case, used in upload paths and
// report names. Distinct from the numeric store ID.
type TrackingID uuid.UUID

// CaseID is the numeric store identifier of a case.
type CaseID int64

// NewTrackingID allocates a fresh tracking identifier.
func NewTrackingID() TrackingID {
	return TrackingID(uuid.New())
}

// ParseUserID constructs a UserID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseReviewerID constructs a ReviewerID from external input.
func ParseReviewerID(s string) (ReviewerID, error) {
	u, err := parseUUID(s, "reviewer_id")
	return ReviewerID(u), err
}

// ParseTrackingID constructs a TrackingID from external input.
func ParseTrackingID(s string) (TrackingID, error) {
	u, err := parseUUID(s, "tracking_id")
	return TrackingID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be the nil UUID")
	}
	return u, nil
}

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UserID) String() string { return uuid.UUID(id).String() }

func (id ReviewerID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ReviewerID) String() string { return uuid.UUID(id).String() }

func (id TrackingID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id TrackingID) String() string { return uuid.UUID(id).String() }
