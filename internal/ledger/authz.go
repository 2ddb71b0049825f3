package ledger

import (
	"context"
	"errors"

	"github.com/doorlist/event-admission/internal/model"
	"github.com/doorlist/event-admission/internal/repository"
)

// Gate answers "is this caller an admin of this fraternity".  It is a pure
// read over the memberships table and fails closed: a lookup error is
// never treated as authorization, and a missing membership is simply not
// an admin.
type Gate struct {
	memberships MembershipStore
}

// NewGate returns a Gate reading from the given membership store.
func NewGate(memberships MembershipStore) *Gate {
	return &Gate{memberships: memberships}
}

// IsAdmin reports whether the user holds the admin role in the fraternity.
func (g *Gate) IsAdmin(ctx context.Context, userID, fraternityID string) (bool, error) {
	role, err := g.memberships.GetRole(ctx, userID, fraternityID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == model.RoleAdmin, nil
}

// requireAdmin resolves the event and enforces that adminID administers its
// owning fraternity.  Every mutating ledger operation goes through here
// (the self-service request path and the internal checkout path excepted).
func requireAdmin(ctx context.Context, events EventStore, gate *Gate, eventID, adminID string) (*model.Event, error) {
	ev, err := events.GetByID(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("event")
	}
	if err != nil {
		return nil, storeFailure("load event", err)
	}
	ok, err := gate.IsAdmin(ctx, adminID, ev.FraternityID)
	if err != nil {
		return nil, storeFailure("authorization lookup", err)
	}
	if !ok {
		return nil, notAuthorized()
	}
	return ev, nil
}
