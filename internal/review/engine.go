package review

import (
	"fmt"

	"drs/internal/status"
	dErrors "drs/pkg/domain-errors"
)

// Outcome is the overall result the decision engine computes for a case.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeInformationRequested
	OutcomeApproved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeInformationRequested:
		return "information_requested"
	case OutcomeApproved:
		return "approved"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// StatusCode maps the outcome onto the case status it produces.
func (o Outcome) StatusCode() int {
	switch o {
	case OutcomeRejected:
		return status.Rejected
	case OutcomeInformationRequested:
		return status.InformationRequested
	default:
		return status.Approved
	}
}

// rule pairs a predicate over the current section decisions with the outcome
// it produces. Rules run in order and the first match wins; keeping the
// rejection rule ahead of the information-request rule is what makes
// rejection dominate a mixed review.
type rule struct {
	name    string
	matches func(decisions map[Section]Comment) bool
	outcome Outcome
}

var rules = []rule{
	{
		name:    "any section rejected",
		matches: anyDecision(status.Rejected),
		outcome: OutcomeRejected,
	},
	{
		name:    "any section requested information",
		matches: anyDecision(status.InformationRequested),
		outcome: OutcomeInformationRequested,
	},
	{
		name:    "all sections approved",
		matches: allDecision(status.Approved),
		outcome: OutcomeApproved,
	},
}

func anyDecision(code int) func(map[Section]Comment) bool {
	return func(decisions map[Section]Comment) bool {
		for _, c := range decisions {
			if c.Status == code {
				return true
			}
		}
		return false
	}
}

func allDecision(code int) func(map[Section]Comment) bool {
	return func(decisions map[Section]Comment) bool {
		for _, c := range decisions {
			if c.Status != code {
				return false
			}
		}
		return true
	}
}

// Evaluate computes the case outcome from the latest section decisions.
// Errors: CodePreconditionFailed when any of the fixed sections has no
// decision yet, or when a decision carries a code outside the decision set.
func Evaluate(decisions map[Section]Comment) (Outcome, error) {
	for _, section := range Sections {
		if _, ok := decisions[section]; !ok {
			return 0, dErrors.New(dErrors.CodePreconditionFailed, "complete the review process")
		}
	}
	for _, r := range rules {
		if r.matches(decisions) {
			return r.outcome, nil
		}
	}
	return 0, dErrors.New(dErrors.CodePreconditionFailed, "complete the review process")
}
