// Package status holds the fixed case status enumeration shared by every
// component. The registry is seeded once at startup and is immutable, so
// concurrent reads need no locking.
package status

// Case statuses. The integer codes are part of the persisted schema and the
// public API; they never change.
const (
	NewRequest           = 1
	AwaitingDocuments    = 2
	PendingReview        = 3
	InReview             = 4
	InformationRequested = 5
	Approved             = 6
	Rejected             = 7
	Closed               = 8
	Failed               = 9
	Processed            = 10
	Processing           = 11
)

var names = map[int]string{
	NewRequest:           "New Request",
	AwaitingDocuments:    "Awaiting Documents",
	PendingReview:        "Pending Review",
	InReview:             "In Review",
	InformationRequested: "Information Requested",
	Approved:             "Approved",
	Rejected:             "Rejected",
	Closed:               "Closed",
	Failed:               "Failed",
	Processed:            "Processed",
	Processing:           "Processing",
}

var codes = buildCodeIndex()

func buildCodeIndex() map[string]int {
	index := make(map[string]int, len(names))
	for code, name := range names {
		index[name] = code
	}
	return index
}

// ID resolves a status name to its integer code.
// Unknown names return (0, false); the registry never panics.
func ID(name string) (int, bool) {
	code, ok := codes[name]
	return code, ok
}

// Name resolves an integer code to its status name.
// Unknown codes return ("", false).
func Name(code int) (string, bool) {
	name, ok := names[code]
	return name, ok
}

// IsTerminal reports whether a case in this status can never advance again.
func IsTerminal(code int) bool {
	return code == Approved || code == Rejected || code == Closed
}

// CanClose reports whether a case may transition directly to Closed.
// Approved, Rejected, and In Review cases must resolve through the review
// process first; everything else pre-resolution may be closed.
func CanClose(code int) bool {
	switch code {
	case NewRequest, AwaitingDocuments, PendingReview, InformationRequested:
		return true
	default:
		return false
	}
}
