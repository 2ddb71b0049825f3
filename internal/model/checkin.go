package model

import "time"

// Entry methods record how a check-in was created.  EntryGeofenceAuto is
// never stored on the record itself (entry_method is set at check-in and
// kept through checkout); it identifies the automatic checkout cause on
// published change and audit events.
const (
	EntryQRScan       = "qr_scan"
	EntryManual       = "manual"
	EntryGeofenceAuto = "geofence_auto"
)

// CheckinRecord represents a row in the `checkin_records` table.  There is
// exactly one row per (event, user) pair, enforced by a unique key, and
// the same row is flipped between checked-in and checked-out as the guest
// leaves and returns.  At most one activation is possible at a time because
// every transition is a conditional update on is_checked_in.
//
// Fields:
//  ID           – UUID primary key.
//  EventID      – event being attended.
//  UserID       – attending user.
//  IsCheckedIn  – true while the guest is inside.
//  EntryMethod  – how the current/most recent activation was created.
//  CheckedInAt  – start of the most recent activation (UTC).
//  CheckedOutAt – end of the most recent activation; nil while active.
type CheckinRecord struct {
	ID           string     // checkin_records.id
	EventID      string     // checkin_records.event_id
	UserID       string     // checkin_records.user_id
	IsCheckedIn  bool       // checkin_records.is_checked_in
	EntryMethod  string     // checkin_records.entry_method
	CheckedInAt  time.Time  // checkin_records.checked_in_at
	CheckedOutAt *time.Time // checkin_records.checked_out_at (nullable)
}
