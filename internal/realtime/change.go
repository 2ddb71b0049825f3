// Package realtime implements the change-propagation bus that keeps all
// connected admin dashboards consistent without polling.  Ledgers publish
// row-level changes to per-scope topics over Redis pub/sub; dashboard
// sessions subscribe with a reconnecting handle.  Delivery is at-least-once
// with possible gaps across reconnects, so consumers apply changes
// idempotently and re-fetch current state after a reconnect instead of
// assuming the stream was gapless.
package realtime

import "encoding/json"

// Change types carried on the bus.
const (
	ChangeInsert = "insert"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// Entity names carried on the bus.
const (
	EntityAdmissionRequest = "admission_request"
	EntityCheckinRecord    = "checkin_record"
)

// Change is a single row-level mutation notification.  Before and After
// hold JSON snapshots of the row; Before is omitted on inserts.  Cause
// distinguishes how a check-in transition was initiated (qr_scan, manual,
// geofence_auto) without rewriting the record's entry_method.
type Change struct {
	Type   string          `json:"change_type"`
	Entity string          `json:"entity"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
	Cause  string          `json:"cause,omitempty"`
}

// EventTopic is the per-event scope: every admission and check-in change
// for the event is published here.  Admin dashboards for an event
// subscribe to this topic.
func EventTopic(eventID string) string { return "event:" + eventID }

// UserTopic is the per-user scope: every change where the user is the
// subject (their own requests and check-ins) is published here.
func UserTopic(userID string) string { return "user:" + userID }
