package repository

import (
	"context"
	"database/sql"
	"errors"
)

// MembershipRepo reads the memberships table owned by the external identity
// service.  It is consumed exclusively by the authorization gate and never
// writes.
type MembershipRepo struct {
	db *sql.DB
}

// NewMembershipRepo returns a new MembershipRepo bound to the given database.
func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

// GetRole returns the caller's role in the given fraternity.  ErrNotFound
// means the user is not a member at all; callers must treat that the same
// as a non-admin role.
func (r *MembershipRepo) GetRole(ctx context.Context, userID, fraternityID string) (string, error) {
	const q = `SELECT role FROM memberships WHERE user_id = ? AND fraternity_id = ?`
	var role string
	err := r.db.QueryRowContext(ctx, q, userID, fraternityID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return role, nil
}
