package domain

import (
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "drs/pkg/domain-errors"
	pstrings "drs/pkg/platform/strings"
)

// IMEI is a raw device identifier as submitted (14 to 16 digits).
// Construct via ParseIMEI at trust boundaries; direct casting bypasses validation.
type IMEI string

const (
	imeiMinDigits = 14
	imeiMaxDigits = 16

	// NormalizedLength is the digit count of a normalized IMEI.
	NormalizedLength = 14

	// TACLength is the digit count of a Type Allocation Code.
	TACLength = 8
)

// ParseIMEI constructs an IMEI from external input.
// Errors: CodeInvalidInput when the value is empty, non-numeric, or outside
// the 14-16 digit range.
func ParseIMEI(s string) (IMEI, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "imei cannot be empty")
	}
	if !govalidator.IsNumeric(trimmed) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "imei must contain digits only")
	}
	if len(trimmed) < imeiMinDigits || len(trimmed) > imeiMaxDigits {
		return "", dErrors.New(dErrors.CodeInvalidInput, "imei must be 14 to 16 digits")
	}
	return IMEI(trimmed), nil
}

// Normalized returns the first 14 digits, the canonical identity used for
// whitelist records, quota counting, and duplicate detection.
func (i IMEI) Normalized() string {
	if len(i) < NormalizedLength {
		return string(i)
	}
	return string(i[:NormalizedLength])
}

// TAC returns the Type Allocation Code (first 8 digits) for GSMA model lookups.
func (i IMEI) TAC() string {
	if len(i) < TACLength {
		return string(i)
	}
	return string(i[:TACLength])
}

func (i IMEI) String() string { return string(i) }

// NormalizeAll maps a batch of IMEIs to their distinct normalized forms,
// preserving first-seen order.
func NormalizeAll(imeis []IMEI) []string {
	raw := make([]string, 0, len(imeis))
	for _, imei := range imeis {
		raw = append(raw, imei.Normalized())
	}
	return pstrings.DedupeAndTrim(raw)
}
