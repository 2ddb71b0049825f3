package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doorlist/event-admission/internal/model"
)

// EventRepo provides read access to the events table.  Events are created
// and mutated by the external fraternity service; this service only needs
// to resolve an event's owning fraternity, visibility and venue coordinate.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

// GetByID loads a single event.  It returns ErrNotFound when no event with
// the given id exists.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	const q = `SELECT id, fraternity_id, name, visibility, qr_seed, latitude, longitude, created_at
	           FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.FraternityID, &ev.Name, &ev.Visibility, &ev.QRSeed,
		&ev.Latitude, &ev.Longitude, &ev.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
