package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/doorlist/event-admission/internal/model"
	"github.com/doorlist/event-admission/internal/queue"
	"github.com/doorlist/event-admission/internal/realtime"
	"github.com/doorlist/event-admission/internal/repository"
)

// CheckinLedger owns the attendance state machine: absent → checked_in →
// checked_out → checked_in → …  Re-entry is expected; a guest may step out
// and return.  An approved admission record is a precondition for every
// activation, and the store enforces at most one active record per
// (event, user) pair.  The ledger is the only writer to its table.
type CheckinLedger struct {
	checkins   CheckinStore
	admissions AdmissionStore
	events     EventStore
	gate       *Gate
	bus        ChangePublisher
	audit      AuditSink

	now   func() time.Time
	newID func() string
}

// NewCheckinLedger wires the ledger.  bus and audit may be nil.
func NewCheckinLedger(checkins CheckinStore, admissions AdmissionStore, events EventStore, gate *Gate, bus ChangePublisher, audit AuditSink) *CheckinLedger {
	return &CheckinLedger{
		checkins:   checkins,
		admissions: admissions,
		events:     events,
		gate:       gate,
		bus:        bus,
		audit:      audit,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// CheckIn admits a guest through a QR scan at the door.  Order of checks:
// admin gate, payload validation, approved-admission precondition, then
// the activation itself.  The activation is a conditional store write, so
// a double scan resolves with exactly one active record and the second
// caller gets a precondition failure, even when the calls race.
func (l *CheckinLedger) CheckIn(ctx context.Context, eventID, userID, payload, adminID string) (*model.CheckinRecord, error) {
	if err := validateIDs(eventID, userID, adminID); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, l.events, l.gate, eventID, adminID); err != nil {
		return nil, err
	}
	if v := ValidateScanPayload(payload, eventID, userID); !v.Valid {
		return nil, invalidPayload(v.Reason, scanMismatchMessage(v.Reason))
	}
	return l.admit(ctx, eventID, userID, adminID, model.EntryQRScan)
}

// CheckInManual admits a guest without a scan, for doors where the admin
// identifies the guest directly.  Same gate and admission precondition as
// the QR path; only the payload validation is skipped and the record's
// entry method says manual.
func (l *CheckinLedger) CheckInManual(ctx context.Context, eventID, userID, adminID string) (*model.CheckinRecord, error) {
	if err := validateIDs(eventID, userID, adminID); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, l.events, l.gate, eventID, adminID); err != nil {
		return nil, err
	}
	return l.admit(ctx, eventID, userID, adminID, model.EntryManual)
}

func (l *CheckinLedger) admit(ctx context.Context, eventID, userID, adminID, entryMethod string) (*model.CheckinRecord, error) {
	req, err := l.admissions.GetByPair(ctx, eventID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, precondition("not on the guest list")
	}
	if err != nil {
		return nil, storeFailure("load admission request", err)
	}
	if req.Status != model.AdmissionApproved {
		return nil, precondition("not on the guest list")
	}

	// Snapshot before the transition so the published change can carry a
	// before image and the right insert/update type.  The snapshot is
	// informational only; the invariant lives in Activate.
	before, err := l.checkins.GetByPair(ctx, eventID, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeFailure("load checkin record", err)
	}

	now := l.now()
	id := l.newID()
	if err := l.checkins.Activate(ctx, id, eventID, userID, entryMethod, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, precondition("already checked in")
		}
		return nil, storeFailure("activate checkin", err)
	}

	after, err := l.checkins.GetByPair(ctx, eventID, userID)
	if err != nil {
		return nil, storeFailure("load checkin record", err)
	}
	typ := realtime.ChangeUpdate
	if before == nil {
		typ = realtime.ChangeInsert
	}
	l.publish(ctx, typ, before, after, entryMethod)
	l.recordAudit(ctx, queue.AuditCheckedIn, eventID, userID, adminID, entryMethod)
	return after, nil
}

// CheckOut ends a guest's active check-in.  With an adminID it is the
// manual door path and passes the gate; with an empty adminID it is the
// trusted internal path used exclusively by the geofence monitor and must
// never be reachable from an external entry point.  Both paths share the
// same conditional deactivation, so a manual checkout racing the
// geofence trigger converges: exactly one transition happens and the
// later caller observes "not currently checked in".
func (l *CheckinLedger) CheckOut(ctx context.Context, eventID, userID, adminID string) (*model.CheckinRecord, error) {
	ids := []string{eventID, userID}
	cause := model.EntryGeofenceAuto
	if adminID != "" {
		ids = append(ids, adminID)
		cause = model.EntryManual
	}
	if err := validateIDs(ids...); err != nil {
		return nil, err
	}
	if adminID != "" {
		if _, err := requireAdmin(ctx, l.events, l.gate, eventID, adminID); err != nil {
			return nil, err
		}
	}

	before, err := l.checkins.GetByPair(ctx, eventID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, precondition("not currently checked in")
	}
	if err != nil {
		return nil, storeFailure("load checkin record", err)
	}

	now := l.now()
	if err := l.checkins.Deactivate(ctx, eventID, userID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, precondition("not currently checked in")
		}
		return nil, storeFailure("deactivate checkin", err)
	}

	after := *before
	after.IsCheckedIn = false
	after.CheckedOutAt = &now
	l.publish(ctx, realtime.ChangeUpdate, before, &after, cause)
	l.recordAudit(ctx, queue.AuditCheckedOut, eventID, userID, adminID, cause)
	return &after, nil
}

// ListActive returns the event's active attendees, most recent first.
// Admin-gated read.
func (l *CheckinLedger) ListActive(ctx context.Context, eventID, adminID string) ([]model.CheckinRecord, error) {
	if err := validateIDs(eventID, adminID); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, l.events, l.gate, eventID, adminID); err != nil {
		return nil, err
	}
	list, err := l.checkins.ListActive(ctx, eventID)
	if err != nil {
		return nil, storeFailure("list active checkins", err)
	}
	return list, nil
}

func (l *CheckinLedger) publish(ctx context.Context, typ string, before, after *model.CheckinRecord, cause string) {
	if l.bus == nil {
		return
	}
	ch := realtime.Change{Type: typ, Entity: realtime.EntityCheckinRecord, Cause: cause}
	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			ch.Before = b
		}
	}
	if b, err := json.Marshal(after); err == nil {
		ch.After = b
	}
	_ = l.bus.Publish(ctx, realtime.EventTopic(after.EventID), ch)
	_ = l.bus.Publish(ctx, realtime.UserTopic(after.UserID), ch)
}

func (l *CheckinLedger) recordAudit(ctx context.Context, action, eventID, userID, actorID, method string) {
	if l.audit == nil {
		return
	}
	l.audit.Record(ctx, queue.AuditEvent{
		Action:  action,
		EventID: eventID,
		UserID:  userID,
		ActorID: actorID,
		Method:  method,
		At:      l.now().Format(time.RFC3339),
	})
}

func scanMismatchMessage(reason string) string {
	switch reason {
	case ReasonWrongEvent:
		return "code is for a different event"
	case ReasonWrongUser:
		return "code is for a different user"
	default:
		return "malformed code"
	}
}
