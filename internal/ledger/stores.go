package ledger

import (
	"context"
	"time"

	"github.com/doorlist/event-admission/internal/model"
	"github.com/doorlist/event-admission/internal/queue"
	"github.com/doorlist/event-admission/internal/realtime"
)

// Store interfaces consumed by the ledgers.  The repository structs
// satisfy them; tests substitute in-memory fakes.  The conditional
// transition methods (Resolve, Reapprove, Activate, Deactivate) carry the
// atomicity contract: the precondition is checked by the same write that
// performs the transition.

// AdmissionStore is the persistence surface for admission requests.
type AdmissionStore interface {
	Create(ctx context.Context, req *model.AdmissionRequest) error
	GetByID(ctx context.Context, id string) (*model.AdmissionRequest, error)
	GetByPair(ctx context.Context, eventID, userID string) (*model.AdmissionRequest, error)
	Resolve(ctx context.Context, id, status string, respondedAt time.Time) (bool, error)
	Reapprove(ctx context.Context, eventID, userID string, respondedAt time.Time) (bool, error)
	ListByEvent(ctx context.Context, eventID, status string) ([]model.AdmissionRequest, error)
}

// CheckinStore is the persistence surface for check-in records.
type CheckinStore interface {
	Activate(ctx context.Context, id, eventID, userID, entryMethod string, at time.Time) error
	Deactivate(ctx context.Context, eventID, userID string, at time.Time) error
	GetByPair(ctx context.Context, eventID, userID string) (*model.CheckinRecord, error)
	ListActive(ctx context.Context, eventID string) ([]model.CheckinRecord, error)
}

// EventStore resolves events (read-only dependency).
type EventStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// MembershipStore resolves fraternity roles (read-only dependency).
type MembershipStore interface {
	GetRole(ctx context.Context, userID, fraternityID string) (string, error)
}

// ChangePublisher receives row-level change notifications after every
// successful mutation.  Publishing is best-effort; a failed publish never
// undoes a committed write.
type ChangePublisher interface {
	Publish(ctx context.Context, topic string, ch realtime.Change) error
}

// AuditSink receives one entry per committed transition for the offline
// audit trail.  Like change publishing it is best-effort and never blocks
// or fails the mutation.
type AuditSink interface {
	Record(ctx context.Context, ev queue.AuditEvent)
}
