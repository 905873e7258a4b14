// Package cases owns registration and de-registration request records and
// their lifecycle up to the point a review resolves them.
package cases

import (
	"time"

	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
)

// Type distinguishes the two request variants. They share one state shape.
type Type string

const (
	TypeRegistration   Type = "registration"
	TypeDeregistration Type = "deregistration"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeRegistration, TypeDeregistration:
		return Type(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "case type must be registration or deregistration")
	}
}

// Channel records where a case was submitted from. USSD cases skip human
// review and resolve straight from the aggregation summary.
type Channel string

const (
	ChannelWeb  Channel = "web"
	ChannelUSSD Channel = "ussd"
)

func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case "":
		return ChannelWeb, nil
	case ChannelWeb, ChannelUSSD:
		return Channel(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "channel must be web or ussd")
	}
}

// Device is one handset entry on a case. A device owns one or more IMEIs
// (multi-SIM models carry several).
type Device struct {
	ID        int64
	Brand     string
	ModelName string
	Count     int
	IMEIs     []id.IMEI
}

// Case is a registration or de-registration request. Status is the overall
// workflow status; ProcessingStatus and ReportStatus track the device
// ingestion and report generation pipelines independently, reusing the same
// status codes.
type Case struct {
	ID         id.CaseID
	TrackingID id.TrackingID
	Type       Type
	Channel    Channel

	UserID   id.UserID
	UserName string

	ReviewerID   id.ReviewerID
	ReviewerName string

	Status           int
	ProcessingStatus int
	ReportStatus     int

	Devices []Device

	Summary       []byte
	Report        string
	ReportAllowed bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IMEIs returns every IMEI across the case's devices, in device order.
func (c *Case) IMEIs() []id.IMEI {
	var out []id.IMEI
	for _, d := range c.Devices {
		out = append(out, d.IMEIs...)
	}
	return out
}

// NormalizedIMEIs returns the distinct normalized IMEIs across all devices.
func (c *Case) NormalizedIMEIs() []string {
	return id.NormalizeAll(c.IMEIs())
}

// HasReviewer reports whether the case has been claimed.
func (c *Case) HasReviewer() bool {
	return !c.ReviewerID.IsNil()
}
