package core

import "strings"

// MinReasonLength is the minimum length, after trimming, of the
// corporate justification that must accompany every mutating call.
const MinReasonLength = 5

// ValidateReason enforces the audit gate. It runs before any other
// validation so a rejected call never leaves a partial audit trail.
func ValidateReason(reason string) error {
	if len(strings.TrimSpace(reason)) < MinReasonLength {
		return E(KindReasonRequired, "a justification of at least %d characters is required", MinReasonLength)
	}
	return nil
}
