package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doorlist/event-admission/internal/model"
)

// AdmissionRepo provides data access to the admission_requests table.  It
// is the only writer to that table.  Status transitions are expressed as
// conditional updates so that the "pending is the only resolvable state"
// rule is enforced in the same statement as the write: a second admin
// racing on the same request observes zero affected rows, never a double
// resolution.  All timestamps are UTC.
type AdmissionRepo struct {
	db *sql.DB
}

// NewAdmissionRepo returns a new AdmissionRepo bound to the given database.
func NewAdmissionRepo(db *sql.DB) *AdmissionRepo { return &AdmissionRepo{db: db} }

const admissionColumns = `id, event_id, user_id, status, requested_at, responded_at`

func scanAdmission(row interface{ Scan(...any) error }) (*model.AdmissionRequest, error) {
	var req model.AdmissionRequest
	var responded sql.NullTime
	if err := row.Scan(&req.ID, &req.EventID, &req.UserID, &req.Status, &req.RequestedAt, &responded); err != nil {
		return nil, err
	}
	if responded.Valid {
		t := responded.Time
		req.RespondedAt = &t
	}
	return &req, nil
}

// Create inserts a new request.  The caller supplies the id, status and
// timestamps so the same method serves both the self-service pending path
// and the manual-add approved path.  A duplicate (event, user) pair is
// reported as ErrConflict via the unique key, not by a prior read.
func (r *AdmissionRepo) Create(ctx context.Context, req *model.AdmissionRequest) error {
	const q = `INSERT INTO admission_requests (id, event_id, user_id, status, requested_at, responded_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	var responded any
	if req.RespondedAt != nil {
		responded = req.RespondedAt.UTC()
	}
	_, err := r.db.ExecContext(ctx, q, req.ID, req.EventID, req.UserID, req.Status, req.RequestedAt.UTC(), responded)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByID loads a single request.  Returns ErrNotFound when missing.
func (r *AdmissionRepo) GetByID(ctx context.Context, id string) (*model.AdmissionRequest, error) {
	const q = `SELECT ` + admissionColumns + ` FROM admission_requests WHERE id = ?`
	req, err := scanAdmission(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

// GetByPair loads the request for an (event, user) pair.  Returns
// ErrNotFound when no request exists for the pair.
func (r *AdmissionRepo) GetByPair(ctx context.Context, eventID, userID string) (*model.AdmissionRequest, error) {
	const q = `SELECT ` + admissionColumns + ` FROM admission_requests WHERE event_id = ? AND user_id = ?`
	req, err := scanAdmission(r.db.QueryRowContext(ctx, q, eventID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

// Resolve moves a request from pending to the given terminal status and
// stamps responded_at.  It reports whether the transition happened: false
// means the request was not pending any more (or does not exist), which
// callers surface as a precondition failure.
func (r *AdmissionRepo) Resolve(ctx context.Context, id, status string, respondedAt time.Time) (bool, error) {
	const q = `UPDATE admission_requests SET status = ?, responded_at = ?
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, status, respondedAt.UTC(), id, model.AdmissionPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Reapprove flips an existing pending or denied request to approved.  It is
// the manual-add path's counterpart to Resolve and likewise reports whether
// a row changed; false means the request was already approved.
func (r *AdmissionRepo) Reapprove(ctx context.Context, eventID, userID string, respondedAt time.Time) (bool, error) {
	const q = `UPDATE admission_requests SET status = ?, responded_at = ?
	           WHERE event_id = ? AND user_id = ? AND status IN (?, ?)`
	res, err := r.db.ExecContext(ctx, q, model.AdmissionApproved, respondedAt.UTC(),
		eventID, userID, model.AdmissionPending, model.AdmissionDenied)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByEvent returns all requests for an event ordered by request time.
// When status is non-empty the list is filtered to that status.
func (r *AdmissionRepo) ListByEvent(ctx context.Context, eventID, status string) ([]model.AdmissionRequest, error) {
	q := `SELECT ` + admissionColumns + ` FROM admission_requests WHERE event_id = ?`
	args := []any{eventID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY requested_at ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AdmissionRequest, 0)
	for rows.Next() {
		req, err := scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
