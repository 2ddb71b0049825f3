package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/doorlist/event-admission/internal/model"
	"github.com/doorlist/event-admission/internal/queue"
	"github.com/doorlist/event-admission/internal/realtime"
	"github.com/doorlist/event-admission/internal/repository"
)

// In-memory stores mirroring the SQL repositories' semantics, including
// the conditional-transition contracts of Resolve, Reapprove, Activate
// and Deactivate.

type pair struct{ eventID, userID string }

type fakeAdmissions struct {
	mu   sync.Mutex
	byID map[string]*model.AdmissionRequest
}

func newFakeAdmissions() *fakeAdmissions {
	return &fakeAdmissions{byID: map[string]*model.AdmissionRequest{}}
}

func (f *fakeAdmissions) Create(ctx context.Context, req *model.AdmissionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.EventID == req.EventID && r.UserID == req.UserID {
			return repository.ErrConflict
		}
	}
	cp := *req
	f.byID[req.ID] = &cp
	return nil
}

func (f *fakeAdmissions) GetByID(ctx context.Context, id string) (*model.AdmissionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeAdmissions) GetByPair(ctx context.Context, eventID, userID string) (*model.AdmissionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.EventID == eventID && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAdmissions) Resolve(ctx context.Context, id, status string, respondedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || r.Status != model.AdmissionPending {
		return false, nil
	}
	r.Status = status
	at := respondedAt
	r.RespondedAt = &at
	return true, nil
}

func (f *fakeAdmissions) Reapprove(ctx context.Context, eventID, userID string, respondedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.EventID == eventID && r.UserID == userID &&
			(r.Status == model.AdmissionPending || r.Status == model.AdmissionDenied) {
			r.Status = model.AdmissionApproved
			at := respondedAt
			r.RespondedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAdmissions) ListByEvent(ctx context.Context, eventID, status string) ([]model.AdmissionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.AdmissionRequest{}
	for _, r := range f.byID {
		if r.EventID != eventID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

type fakeCheckins struct {
	mu   sync.Mutex
	rows map[pair]*model.CheckinRecord
}

func newFakeCheckins() *fakeCheckins {
	return &fakeCheckins{rows: map[pair]*model.CheckinRecord{}}
}

func (f *fakeCheckins) Activate(ctx context.Context, id, eventID, userID, entryMethod string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := pair{eventID, userID}
	if r, ok := f.rows[k]; ok {
		if r.IsCheckedIn {
			return repository.ErrConflict
		}
		r.IsCheckedIn = true
		r.EntryMethod = entryMethod
		r.CheckedInAt = at
		r.CheckedOutAt = nil
		return nil
	}
	f.rows[k] = &model.CheckinRecord{
		ID: id, EventID: eventID, UserID: userID,
		IsCheckedIn: true, EntryMethod: entryMethod, CheckedInAt: at,
	}
	return nil
}

func (f *fakeCheckins) Deactivate(ctx context.Context, eventID, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[pair{eventID, userID}]
	if !ok || !r.IsCheckedIn {
		return repository.ErrConflict
	}
	r.IsCheckedIn = false
	out := at
	r.CheckedOutAt = &out
	return nil
}

func (f *fakeCheckins) GetByPair(ctx context.Context, eventID, userID string) (*model.CheckinRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[pair{eventID, userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeCheckins) ListActive(ctx context.Context, eventID string) ([]model.CheckinRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.CheckinRecord{}
	for _, r := range f.rows {
		if r.EventID == eventID && r.IsCheckedIn {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedInAt.After(out[j].CheckedInAt) })
	return out, nil
}

type fakeEvents struct {
	events map[string]*model.Event
}

func (f *fakeEvents) GetByID(ctx context.Context, id string) (*model.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

type fakeMemberships struct {
	roles map[pair]string // (fraternityID, userID) -> role
}

func (f *fakeMemberships) GetRole(ctx context.Context, userID, fraternityID string) (string, error) {
	role, ok := f.roles[pair{fraternityID, userID}]
	if !ok {
		return "", repository.ErrNotFound
	}
	return role, nil
}

type publishedChange struct {
	topic  string
	change realtime.Change
}

type fakeBus struct {
	mu        sync.Mutex
	published []publishedChange
}

func (f *fakeBus) Publish(ctx context.Context, topic string, ch realtime.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedChange{topic: topic, change: ch})
	return nil
}

func (f *fakeBus) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.published))
	for _, p := range f.published {
		out = append(out, p.topic)
	}
	return out
}

type fakeAudit struct {
	mu     sync.Mutex
	events []queue.AuditEvent
}

func (f *fakeAudit) Record(ctx context.Context, ev queue.AuditEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

// Fixed ids reused across the ledger tests.
const (
	testEventID  = "11111111-1111-1111-1111-111111111111"
	testUserID   = "22222222-2222-2222-2222-222222222222"
	testAdminID  = "33333333-3333-3333-3333-333333333333"
	testFratID   = "44444444-4444-4444-4444-444444444444"
	testMemberID = "55555555-5555-5555-5555-555555555555"
)

type fixture struct {
	admissions  *fakeAdmissions
	checkins    *fakeCheckins
	events      *fakeEvents
	memberships *fakeMemberships
	bus         *fakeBus
	audit       *fakeAudit

	admission *AdmissionLedger
	checkin   *CheckinLedger
}

func newFixture(visibility string) *fixture {
	f := &fixture{
		admissions: newFakeAdmissions(),
		checkins:   newFakeCheckins(),
		events: &fakeEvents{events: map[string]*model.Event{
			testEventID: {
				ID:           testEventID,
				FraternityID: testFratID,
				Name:         "spring formal",
				Visibility:   visibility,
				Latitude:     40.0,
				Longitude:    -83.0,
			},
		}},
		memberships: &fakeMemberships{roles: map[pair]string{
			{testFratID, testAdminID}:  model.RoleAdmin,
			{testFratID, testMemberID}: model.RoleMember,
		}},
		bus:   &fakeBus{},
		audit: &fakeAudit{},
	}
	gate := NewGate(f.memberships)
	f.admission = NewAdmissionLedger(f.admissions, f.events, gate, f.bus, f.audit)
	f.checkin = NewCheckinLedger(f.checkins, f.admissions, f.events, gate, f.bus, f.audit)
	return f
}

// approve seeds an approved admission for the default pair.
func (f *fixture) approve(t interface{ Fatalf(string, ...any) }) {
	req, err := f.admission.RequestAdmission(context.Background(), testEventID, testUserID)
	if err != nil {
		t.Fatalf("seed request: %v", err)
	}
	if _, err := f.admission.Approve(context.Background(), req.ID, testAdminID); err != nil {
		t.Fatalf("seed approve: %v", err)
	}
}
