package model

import "time"

// PositionSample is a single location report for a (user, event) pair,
// delivered by the external location collaborator.  Samples are ephemeral:
// they feed the geofence monitor's in/out decision and are never persisted.
type PositionSample struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}
