package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doorlist/event-admission/internal/model"
)

// CheckinRepo provides data access to the checkin_records table and is its
// only writer.  The at-most-one-active-row-per-pair invariant is carried by
// the storage layer, not by application reads: a unique key on (event_id,
// user_id) guarantees a single row per pair, and every activation or
// deactivation is a conditional update on is_checked_in whose affected-row
// count decides the outcome.  Two callers racing on the same pair cannot
// both succeed.
type CheckinRepo struct {
	db *sql.DB
}

// NewCheckinRepo returns a new CheckinRepo bound to the given database.
func NewCheckinRepo(db *sql.DB) *CheckinRepo { return &CheckinRepo{db: db} }

const checkinColumns = `id, event_id, user_id, is_checked_in, entry_method, checked_in_at, checked_out_at`

func scanCheckin(row interface{ Scan(...any) error }) (*model.CheckinRecord, error) {
	var rec model.CheckinRecord
	var out sql.NullTime
	if err := row.Scan(&rec.ID, &rec.EventID, &rec.UserID, &rec.IsCheckedIn,
		&rec.EntryMethod, &rec.CheckedInAt, &out); err != nil {
		return nil, err
	}
	if out.Valid {
		t := out.Time
		rec.CheckedOutAt = &t
	}
	return &rec, nil
}

// Activate transitions a pair to checked-in.  It first tries to reactivate
// an existing inactive row; when no row exists it inserts one with the
// supplied id.  ErrConflict means the pair is already active: either it
// was before the call or a concurrent caller won the race.
func (r *CheckinRepo) Activate(ctx context.Context, id, eventID, userID, entryMethod string, at time.Time) error {
	const upd = `UPDATE checkin_records
	             SET is_checked_in = TRUE, entry_method = ?, checked_in_at = ?, checked_out_at = NULL
	             WHERE event_id = ? AND user_id = ? AND is_checked_in = FALSE`
	res, err := r.db.ExecContext(ctx, upd, entryMethod, at.UTC(), eventID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 1 {
		return nil
	}
	// No inactive row to flip: insert a fresh one.  The unique pair key
	// turns a lost insert race, or an already-active row, into ErrConflict.
	const ins = `INSERT INTO checkin_records (id, event_id, user_id, is_checked_in, entry_method, checked_in_at)
	             VALUES (?, ?, ?, TRUE, ?, ?)`
	if _, err := r.db.ExecContext(ctx, ins, id, eventID, userID, entryMethod, at.UTC()); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Deactivate transitions a pair to checked-out.  ErrConflict means the pair
// was not actively checked in, which is how a second concurrent checkout
// (manual racing geofence) resolves as a harmless no-op for its caller.
func (r *CheckinRepo) Deactivate(ctx context.Context, eventID, userID string, at time.Time) error {
	const q = `UPDATE checkin_records
	           SET is_checked_in = FALSE, checked_out_at = ?
	           WHERE event_id = ? AND user_id = ? AND is_checked_in = TRUE`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), eventID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// GetByPair loads the record for an (event, user) pair.  Returns
// ErrNotFound when the pair has never checked in.
func (r *CheckinRepo) GetByPair(ctx context.Context, eventID, userID string) (*model.CheckinRecord, error) {
	const q = `SELECT ` + checkinColumns + ` FROM checkin_records WHERE event_id = ? AND user_id = ?`
	rec, err := scanCheckin(r.db.QueryRowContext(ctx, q, eventID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListActive returns all active records for an event, most recent first.
func (r *CheckinRepo) ListActive(ctx context.Context, eventID string) ([]model.CheckinRecord, error) {
	const q = `SELECT ` + checkinColumns + ` FROM checkin_records
	           WHERE event_id = ? AND is_checked_in = TRUE
	           ORDER BY checked_in_at DESC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CheckinRecord, 0)
	for rows.Next() {
		rec, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
