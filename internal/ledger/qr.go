package ledger

import "regexp"

// The QR wire format is the literal string `user-{userId}-{eventId}` with
// both ids in UUID form.  Because UUIDs themselves contain dashes, the
// diagnostic extraction below anchors on the fixed 36-character UUID shape
// rather than splitting on dashes.
var scanPayloadPattern = regexp.MustCompile(`^user-([0-9a-fA-F-]{36})-([0-9a-fA-F-]{36})$`)

// ScanPayload builds the expected QR payload for a (user, event) pair.
func ScanPayload(userID, eventID string) string {
	return "user-" + userID + "-" + eventID
}

// ScanValidation is the outcome of validating a scanned payload.  Reason
// is empty when Valid; otherwise one of the Reason* constants.
type ScanValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateScanPayload checks a scanned payload against the expected pair.
// The authoritative check is exact string equality; on mismatch the
// embedded ids are extracted to produce a precise diagnostic so door staff
// know whether to rescan, fetch a different code, or turn the guest away.
// Validation never mutates state.
func ValidateScanPayload(payload, expectedEventID, expectedUserID string) ScanValidation {
	if payload == ScanPayload(expectedUserID, expectedEventID) {
		return ScanValidation{Valid: true}
	}
	m := scanPayloadPattern.FindStringSubmatch(payload)
	if m == nil {
		return ScanValidation{Reason: ReasonMalformed}
	}
	if m[1] != expectedUserID {
		return ScanValidation{Reason: ReasonWrongUser}
	}
	return ScanValidation{Reason: ReasonWrongEvent}
}
