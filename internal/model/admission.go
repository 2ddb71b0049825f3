package model

import "time"

// Admission request statuses.  A request is created pending (or directly
// approved by the manual-add shortcut) and is resolved exactly once through
// the approve/deny path; only a manual add can move a denied request back
// to approved.
const (
	AdmissionPending  = "pending"
	AdmissionApproved = "approved"
	AdmissionDenied   = "denied"
)

// AdmissionRequest represents a row in the `admission_requests` table.
// There is at most one request per (event, user) pair, enforced by a
// unique key.  Requests are never deleted.
//
// Fields:
//  ID          – UUID primary key.
//  EventID     – event the request is for.
//  UserID      – requesting (or manually added) user.
//  Status      – one of the Admission* constants.
//  RequestedAt – when the request was created (UTC).
//  RespondedAt – when an admin resolved it; nil while pending.
type AdmissionRequest struct {
	ID          string     // admission_requests.id
	EventID     string     // admission_requests.event_id
	UserID      string     // admission_requests.user_id
	Status      string     // admission_requests.status
	RequestedAt time.Time  // admission_requests.requested_at
	RespondedAt *time.Time // admission_requests.responded_at (nullable)
}
