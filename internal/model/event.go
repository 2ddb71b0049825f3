package model

import "time"

// Visibility values for an event.  Public events are open to anyone
// and never take admission requests; invite-only and rush-only events
// require an approved admission request before check-in.
const (
	VisibilityPublic     = "public"
	VisibilityInviteOnly = "invite_only"
	VisibilityRushOnly   = "rush_only"
)

// Event represents a row in the `events` table.  Events are owned and
// managed by an external fraternity service; this service only reads
// them to resolve ownership, visibility and the venue coordinate.
//
// Fields:
//  ID           – UUID primary key.
//  FraternityID – UUID of the owning fraternity.
//  Name         – display name of the event.
//  Visibility   – one of the Visibility* constants.
//  QRSeed       – per-event seed included when QR codes are issued.
//  Latitude     – venue latitude in decimal degrees.
//  Longitude    – venue longitude in decimal degrees.
//  CreatedAt    – creation timestamp (UTC).
type Event struct {
	ID           string    // events.id
	FraternityID string    // events.fraternity_id
	Name         string    // events.name
	Visibility   string    // events.visibility
	QRSeed       string    // events.qr_seed
	Latitude     float64   // events.latitude
	Longitude    float64   // events.longitude
	CreatedAt    time.Time // events.created_at
}
