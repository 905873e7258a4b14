// Package compliance talks to the core compliance service, classifies each
// IMEI against the returned record, and reduces large batches into a
// per-case summary and report files.
package compliance

import "encoding/json"

// TriState mirrors the core service's nullable provisional_only field:
// absent means the condition does not apply, true means provisional,
// false means confirmed.
type TriState struct {
	ProvisionalOnly *bool `json:"provisional_only"`
}

// Provisional reports whether the field is present and true.
func (t TriState) Provisional() bool {
	return t.ProvisionalOnly != nil && *t.ProvisionalOnly
}

// Confirmed reports whether the field is present and false.
func (t TriState) Confirmed() bool {
	return t.ProvisionalOnly != nil && !*t.ProvisionalOnly
}

// Condition is one named compliance condition and whether it was met.
type Condition struct {
	Name string `json:"condition_name"`
	Met  bool   `json:"condition_met"`
}

// RealtimeChecks are the live lookups the core service runs per IMEI.
type RealtimeChecks struct {
	EverObservedOnNetwork bool `json:"ever_observed_on_network"`
	GSMANotFound          bool `json:"gsma_not_found"`
	InRegistrationList    bool `json:"in_registration_list"`
	InvalidIMEI           bool `json:"invalid_imei"`
}

// ClassificationState carries the condition evaluations for an IMEI.
type ClassificationState struct {
	BlockingConditions    []Condition `json:"blocking_conditions"`
	InformativeConditions []Condition `json:"informative_conditions"`
}

// Record is the per-IMEI result returned by the core service's batch call.
type Record struct {
	IMEINorm            string              `json:"imei_norm"`
	RegistrationStatus  TriState            `json:"registration_status"`
	StolenStatus        TriState            `json:"stolen_status"`
	RealtimeChecks      RealtimeChecks      `json:"realtime_checks"`
	ClassificationState ClassificationState `json:"classification_state"`
	BlockDate           string              `json:"block_date,omitempty"`
}

// MetConditions returns the names of blocking conditions that were met.
func (r Record) MetConditions() []string {
	var out []string
	for _, c := range r.ClassificationState.BlockingConditions {
		if c.Met {
			out = append(out, c.Name)
		}
	}
	return out
}

// BatchRequest is the body of the core service's imei-batch call.
type BatchRequest struct {
	IMEIs                     []string `json:"imeis"`
	IncludeRegistrationStatus bool     `json:"include_registration_status"`
	IncludeStolenStatus       bool     `json:"include_stolen_status"`
}

// BatchResponse is the core service's imei-batch response.
type BatchResponse struct {
	Results []Record `json:"results"`
}

// Summary is the reduced aggregation result stored on the case. Field names
// match the stored JSON consumed by report endpoints and auto-review.
type Summary struct {
	VerifiedIMEI            int            `json:"verified_imei"`
	Compliant               int            `json:"compliant"`
	NonCompliant            int            `json:"non_compliant"`
	CompliantActive         int            `json:"compliant_active"`
	ProvisionalCompliant    int            `json:"provisional_compliant"`
	ProvisionalNonCompliant int            `json:"provisional_non_compliant"`
	ProvisionalStolen       int            `json:"provisional_stolen"`
	Stolen                  int            `json:"stolen"`
	SeenOnNetwork           int            `json:"seen_on_network"`
	CountPerCondition       map[string]int `json:"count_per_condition"`
	CompliantReportName     string         `json:"compliant_report_name"`
	TrackingID              string         `json:"id"`
}

// Encode marshals the summary for storage on the case row.
func (s *Summary) Encode() (json.RawMessage, error) {
	return json.Marshal(s)
}

// DecodeSummary unmarshals a stored case summary.
func DecodeSummary(raw json.RawMessage) (*Summary, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
