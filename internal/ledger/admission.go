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

// AdmissionLedger owns the admission-request state machine.  Requests
// move pending → approved/denied exactly once through Approve/Deny; the
// manual-add shortcut can create a request directly approved or pull a
// denied one back.  The ledger is the only writer to its table.
type AdmissionLedger struct {
	admissions AdmissionStore
	events     EventStore
	gate       *Gate
	bus        ChangePublisher
	audit      AuditSink

	now   func() time.Time
	newID func() string
}

// NewAdmissionLedger wires the ledger.  bus and audit may be nil; the
// ledger then skips the corresponding notifications.
func NewAdmissionLedger(admissions AdmissionStore, events EventStore, gate *Gate, bus ChangePublisher, audit AuditSink) *AdmissionLedger {
	return &AdmissionLedger{
		admissions: admissions,
		events:     events,
		gate:       gate,
		bus:        bus,
		audit:      audit,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// RequestAdmission creates a pending request on behalf of the requester.
// This is the one mutation that does not pass the admin gate: the caller
// only needs to be authenticated, and the event must be non-public (public
// events need no request).  Duplicate requests for the pair are rejected
// whatever their status, by the unique pair key rather than a prior read.
func (l *AdmissionLedger) RequestAdmission(ctx context.Context, eventID, userID string) (*model.AdmissionRequest, error) {
	if err := validateIDs(eventID, userID); err != nil {
		return nil, err
	}
	ev, err := l.events.GetByID(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("event")
	}
	if err != nil {
		return nil, storeFailure("load event", err)
	}
	if ev.Visibility == model.VisibilityPublic {
		return nil, precondition("public events do not take admission requests")
	}
	req := &model.AdmissionRequest{
		ID:          l.newID(),
		EventID:     eventID,
		UserID:      userID,
		Status:      model.AdmissionPending,
		RequestedAt: l.now(),
	}
	if err := l.admissions.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, precondition("an admission request already exists for this event")
		}
		return nil, storeFailure("create admission request", err)
	}
	l.publish(ctx, realtime.ChangeInsert, nil, req)
	l.record(ctx, queue.AuditRequested, req, userID, "")
	return req, nil
}

// Approve resolves a pending request in the guest's favor.
func (l *AdmissionLedger) Approve(ctx context.Context, requestID, adminID string) (*model.AdmissionRequest, error) {
	return l.resolve(ctx, requestID, adminID, model.AdmissionApproved)
}

// Deny resolves a pending request against the guest.
func (l *AdmissionLedger) Deny(ctx context.Context, requestID, adminID string) (*model.AdmissionRequest, error) {
	return l.resolve(ctx, requestID, adminID, model.AdmissionDenied)
}

// resolve is the shared approve/deny path.  The pending precondition is
// enforced by the store's conditional update, so two admins racing on the
// same request cannot both win: the loser observes a precondition failure.
func (l *AdmissionLedger) resolve(ctx context.Context, requestID, adminID, status string) (*model.AdmissionRequest, error) {
	if err := validateIDs(requestID, adminID); err != nil {
		return nil, err
	}
	req, err := l.admissions.GetByID(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("admission request")
	}
	if err != nil {
		return nil, storeFailure("load admission request", err)
	}
	if _, err := requireAdmin(ctx, l.events, l.gate, req.EventID, adminID); err != nil {
		return nil, err
	}
	respondedAt := l.now()
	ok, err := l.admissions.Resolve(ctx, requestID, status, respondedAt)
	if err != nil {
		return nil, storeFailure("resolve admission request", err)
	}
	if !ok {
		return nil, precondition("request is not pending")
	}
	before := *req
	after := *req
	after.Status = status
	after.RespondedAt = &respondedAt
	l.publish(ctx, realtime.ChangeUpdate, &before, &after)
	action := queue.AuditApproved
	if status == model.AdmissionDenied {
		action = queue.AuditDenied
	}
	l.record(ctx, action, &after, adminID, "")
	return &after, nil
}

// ManuallyAdd puts a walk-up guest straight onto the approved list without
// the two-step request/approve dance.  A missing request is created
// approved; a pending or denied one is flipped; an approved one is
// reported as already on the list without mutation.
func (l *AdmissionLedger) ManuallyAdd(ctx context.Context, eventID, userID, adminID string) (*model.AdmissionRequest, error) {
	if err := validateIDs(eventID, userID, adminID); err != nil {
		return nil, err
	}
	if _, err := requireAdmin(ctx, l.events, l.gate, eventID, adminID); err != nil {
		return nil, err
	}
	now := l.now()
	existing, err := l.admissions.GetByPair(ctx, eventID, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		req := &model.AdmissionRequest{
			ID:          l.newID(),
			EventID:     eventID,
			UserID:      userID,
			Status:      model.AdmissionApproved,
			RequestedAt: now,
			RespondedAt: &now,
		}
		createErr := l.admissions.Create(ctx, req)
		if createErr == nil {
			l.publish(ctx, realtime.ChangeInsert, nil, req)
			l.record(ctx, queue.AuditManuallyAdded, req, adminID, "")
			return req, nil
		}
		if !errors.Is(createErr, repository.ErrConflict) {
			return nil, storeFailure("create admission request", createErr)
		}
		// Lost a create race; fall through and flip whatever now exists.
		existing, err = l.admissions.GetByPair(ctx, eventID, userID)
		if err != nil {
			return nil, storeFailure("load admission request", err)
		}
	case err != nil:
		return nil, storeFailure("load admission request", err)
	}
	if existing.Status == model.AdmissionApproved {
		return nil, precondition("user is already on the guest list")
	}
	ok, err := l.admissions.Reapprove(ctx, eventID, userID, now)
	if err != nil {
		return nil, storeFailure("reapprove admission request", err)
	}
	if !ok {
		return nil, precondition("user is already on the guest list")
	}
	before := *existing
	after := *existing
	after.Status = model.AdmissionApproved
	after.RespondedAt = &now
	l.publish(ctx, realtime.ChangeUpdate, &before, &after)
	l.record(ctx, queue.AuditManuallyAdded, &after, adminID, "")
	return &after, nil
}

// ListRequests returns an event's requests ordered by request time,
// optionally filtered to one status.  Admin-gated read.
func (l *AdmissionLedger) ListRequests(ctx context.Context, eventID, adminID, status string) ([]model.AdmissionRequest, error) {
	if err := validateIDs(eventID, adminID); err != nil {
		return nil, err
	}
	switch status {
	case "", model.AdmissionPending, model.AdmissionApproved, model.AdmissionDenied:
	default:
		return nil, validation("unknown status filter")
	}
	if _, err := requireAdmin(ctx, l.events, l.gate, eventID, adminID); err != nil {
		return nil, err
	}
	list, err := l.admissions.ListByEvent(ctx, eventID, status)
	if err != nil {
		return nil, storeFailure("list admission requests", err)
	}
	return list, nil
}

// ListApprovedGuests returns the event's approved guest list.
func (l *AdmissionLedger) ListApprovedGuests(ctx context.Context, eventID, adminID string) ([]model.AdmissionRequest, error) {
	return l.ListRequests(ctx, eventID, adminID, model.AdmissionApproved)
}

// AuthorizeAdmin checks that adminID administers the event's fraternity
// without touching admission state.  Callers that serve cached reads use
// it so a cache hit never skips the gate.
func (l *AdmissionLedger) AuthorizeAdmin(ctx context.Context, eventID, adminID string) error {
	if err := validateIDs(eventID, adminID); err != nil {
		return err
	}
	_, err := requireAdmin(ctx, l.events, l.gate, eventID, adminID)
	return err
}

// BulkFailure reports one failed item of a bulk operation.
type BulkFailure struct {
	RequestID string `json:"id"`
	Code      Code   `json:"code"`
	Error     string `json:"error"`
}

// BulkResult aggregates a bulk operation.  The operation is deliberately
// not transactional as a unit: a failure on one id never rolls back the
// others, so an admin sees "40 of 42 succeeded, fix the other 2" instead
// of all-or-nothing.
type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// BulkApprove applies Approve to each id independently.
func (l *AdmissionLedger) BulkApprove(ctx context.Context, requestIDs []string, adminID string) *BulkResult {
	return l.bulk(ctx, requestIDs, adminID, l.Approve)
}

// BulkDeny applies Deny to each id independently.
func (l *AdmissionLedger) BulkDeny(ctx context.Context, requestIDs []string, adminID string) *BulkResult {
	return l.bulk(ctx, requestIDs, adminID, l.Deny)
}

func (l *AdmissionLedger) bulk(ctx context.Context, requestIDs []string, adminID string, op func(context.Context, string, string) (*model.AdmissionRequest, error)) *BulkResult {
	res := &BulkResult{Succeeded: []string{}, Failed: []BulkFailure{}}
	for _, id := range requestIDs {
		if _, err := op(ctx, id, adminID); err != nil {
			res.Failed = append(res.Failed, BulkFailure{RequestID: id, Code: CodeOf(err), Error: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res
}

// publish pushes the change onto the event topic and the subject user's
// topic.  Best-effort: errors are already logged by the bus.
func (l *AdmissionLedger) publish(ctx context.Context, typ string, before, after *model.AdmissionRequest) {
	if l.bus == nil {
		return
	}
	ch := realtime.Change{Type: typ, Entity: realtime.EntityAdmissionRequest}
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

func (l *AdmissionLedger) record(ctx context.Context, action string, req *model.AdmissionRequest, actorID, method string) {
	if l.audit == nil {
		return
	}
	l.audit.Record(ctx, queue.AuditEvent{
		Action:  action,
		EventID: req.EventID,
		UserID:  req.UserID,
		ActorID: actorID,
		Method:  method,
		At:      l.now().Format(time.RFC3339),
	})
}

// validateIDs rejects malformed UUIDs before any store round trip.
func validateIDs(ids ...string) error {
	for _, id := range ids {
		if uuid.Validate(id) != nil {
			return validation("malformed id: " + id)
		}
	}
	return nil
}
