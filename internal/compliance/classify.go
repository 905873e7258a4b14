package compliance

import (
	"fmt"
	"strings"
)

// Status is the closed set of per-IMEI classification outcomes. The active
// flag lives on Classification, not in the status itself, so reductions can
// match exhaustively.
type Status int

const (
	StatusCompliant Status = iota
	StatusNonCompliant
	StatusProvisionallyCompliant
	StatusProvisionallyNonCompliant
)

func (s Status) String() string {
	switch s {
	case StatusCompliant:
		return "Compliant"
	case StatusNonCompliant:
		return "Non compliant"
	case StatusProvisionallyCompliant:
		return "Provisionally Compliant"
	case StatusProvisionallyNonCompliant:
		return "Provisionally Non compliant"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Classification is the outcome for one IMEI. Active only applies to the
// compliant statuses and reflects whether the IMEI was ever seen on network.
type Classification struct {
	Status    Status
	Active    bool
	Reasons   []string
	BlockDate string
}

// Label renders the classification the way report rows show it, with the
// activity suffix on compliant outcomes.
func (c Classification) Label() string {
	switch c.Status {
	case StatusCompliant, StatusProvisionallyCompliant:
		if c.Active {
			return c.Status.String() + " (Active)"
		}
		return c.Status.String() + " (Inactive)"
	default:
		return c.Status.String()
	}
}

// DefaultConditionReasons maps blocking condition names to the wording shown
// to users. Deployments override entries via NewClassifier.
var DefaultConditionReasons = map[string]string{
	"gsma_not_found":       "device model not found in GSMA database",
	"local_stolen":         "device reported stolen locally",
	"duplicate":            "IMEI appears on more than one device",
	"malformed":            "IMEI is malformed",
	"not_on_registration":  "device is not on the registration list",
	"exceeded_sim_support": "device exceeds supported SIM slots",
}

const (
	reasonStolenPending   = "reported stolen, pending"
	reasonStolenConfirmed = "reported stolen"
	reasonGeneric         = "blocking conditions met or invalid IMEI"
)

// Classifier turns a core service record into a Classification.
type Classifier struct {
	conditionReasons map[string]string
}

func NewClassifier(conditionReasons map[string]string) *Classifier {
	if conditionReasons == nil {
		conditionReasons = DefaultConditionReasons
	}
	return &Classifier{conditionReasons: conditionReasons}
}

// Classify evaluates the ordered rule table. It is a pure function of the
// record: first matching rule wins, stolen checks precede the clean-device
// rule so a provisionally stolen IMEI can never come out compliant.
func (c *Classifier) Classify(rec Record) Classification {
	active := rec.RealtimeChecks.EverObservedOnNetwork

	// Rule 1: registration itself still pending.
	if rec.RegistrationStatus.Provisional() {
		return Classification{Status: StatusProvisionallyCompliant, Active: active}
	}

	// Rule 2: already registered.
	if rec.RealtimeChecks.InRegistrationList {
		return Classification{Status: StatusCompliant, Active: active}
	}

	// Rule 3: stolen report pending confirmation.
	if rec.StolenStatus.Provisional() {
		return Classification{
			Status:    StatusProvisionallyNonCompliant,
			Reasons:   []string{reasonStolenPending},
			BlockDate: rec.BlockDate,
		}
	}

	// Rule 4: stolen report confirmed.
	if rec.StolenStatus.Confirmed() {
		return Classification{
			Status:    StatusNonCompliant,
			Reasons:   []string{reasonStolenConfirmed},
			BlockDate: rec.BlockDate,
		}
	}

	// Rule 5: clean on every check.
	checks := rec.RealtimeChecks
	if !checks.GSMANotFound && !checks.InRegistrationList && rec.BlockDate == "" &&
		!checks.EverObservedOnNetwork && !checks.InvalidIMEI {
		return Classification{Status: StatusCompliant, Active: active}
	}

	// Rule 6: everything else.
	return Classification{
		Status:    StatusNonCompliant,
		Reasons:   c.reasonsFor(rec),
		BlockDate: rec.BlockDate,
	}
}

// reasonsFor maps the met blocking conditions to their configured wording,
// falling back to a generic reason when none map.
func (c *Classifier) reasonsFor(rec Record) []string {
	var reasons []string
	for _, name := range rec.MetConditions() {
		if reason, ok := c.conditionReasons[name]; ok {
			reasons = append(reasons, reason)
		}
	}
	if rec.RealtimeChecks.InvalidIMEI {
		reasons = append(reasons, "invalid IMEI")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, reasonGeneric)
	}
	return reasons
}

// JoinReasons renders a reason list for a report cell.
func JoinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}
