// Package queue defines message payloads exchanged over the message broker
// and the background consumers that drain them.
package queue

// Queue names.  checkin.audit carries this service's own audit trail;
// geofence.position is fed by the external location collaborator.
const (
	AuditQueueName    = "checkin.audit"
	PositionQueueName = "geofence.position"
)

// Audit actions recorded for every committed ledger transition.
const (
	AuditRequested     = "admission_requested"
	AuditApproved      = "admission_approved"
	AuditDenied        = "admission_denied"
	AuditManuallyAdded = "admission_manually_added"
	AuditCheckedIn     = "checked_in"
	AuditCheckedOut    = "checked_out"
)

// AuditEvent is published to the checkin.audit queue after every
// successful admission or check-in transition.  It contains enough for
// downstream consumers to log or analyze without querying the primary
// database.
type AuditEvent struct {
	Action  string `json:"action"`
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	ActorID string `json:"actor_id,omitempty"` // empty for system-initiated transitions
	Method  string `json:"method,omitempty"`   // qr_scan | manual | geofence_auto
	At      string `json:"at"`                 // RFC3339 UTC
}
