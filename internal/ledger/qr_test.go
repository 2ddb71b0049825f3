package ledger

import "testing"

func TestValidateScanPayload(t *testing.T) {
	const (
		eventID = "11111111-1111-1111-1111-111111111111"
		userID  = "22222222-2222-2222-2222-222222222222"
		otherID = "99999999-9999-9999-9999-999999999999"
	)

	cases := []struct {
		name    string
		payload string
		valid   bool
		reason  string
	}{
		{"exact match", ScanPayload(userID, eventID), true, ""},
		{"wrong event", ScanPayload(userID, otherID), false, ReasonWrongEvent},
		{"wrong user", ScanPayload(otherID, eventID), false, ReasonWrongUser},
		// When both ids mismatch the user diagnostic wins: the door
		// needs to know the code belongs to somebody else first.
		{"wrong user and event", ScanPayload(otherID, otherID), false, ReasonWrongUser},
		{"empty", "", false, ReasonMalformed},
		{"missing prefix", userID + "-" + eventID, false, ReasonMalformed},
		{"wrong prefix", "usr-" + userID + "-" + eventID, false, ReasonMalformed},
		{"truncated uuid", "user-" + userID[:20] + "-" + eventID, false, ReasonMalformed},
		{"trailing junk", ScanPayload(userID, eventID) + "x", false, ReasonMalformed},
		{"not uuid shaped", "user-zzzz-yyyy", false, ReasonMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := ValidateScanPayload(tc.payload, eventID, userID)
			if v.Valid != tc.valid {
				t.Fatalf("Valid = %v, want %v", v.Valid, tc.valid)
			}
			if v.Reason != tc.reason {
				t.Fatalf("Reason = %q, want %q", v.Reason, tc.reason)
			}
		})
	}
}

func TestScanPayloadRoundTrip(t *testing.T) {
	const (
		eventID = "11111111-1111-1111-1111-111111111111"
		userID  = "22222222-2222-2222-2222-222222222222"
	)
	p := ScanPayload(userID, eventID)
	if v := ValidateScanPayload(p, eventID, userID); !v.Valid {
		t.Fatalf("payload %q did not validate against its own pair: %+v", p, v)
	}
}
