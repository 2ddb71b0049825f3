// Package geofence turns position samples into automatic checkouts.  It is
// a continuous background process, not a request/response API: the
// external location collaborator streams {user, event, lat, lng, timestamp}
// samples over the broker, and the monitor invokes the check-in ledger's
// checkout transition when a checked-in guest leaves the venue radius.
// The monitor never writes storage itself.
package geofence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/doorlist/event-admission/internal/ledger"
	"github.com/doorlist/event-admission/internal/model"
	"github.com/doorlist/event-admission/internal/repository"
)

// Checkout is the one output of the monitor: the ledger's internal
// checkout path, called with no admin.
type Checkout interface {
	CheckOut(ctx context.Context, eventID, userID, adminID string) (*model.CheckinRecord, error)
}

// EventStore resolves venue coordinates.
type EventStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// Config tunes the exit decision.  A single sample outside the radius
// never triggers checkout; GPS jitter near the boundary would otherwise
// flap guests out of the event.  A guest is considered gone only after
// MinOutsideSamples consecutive outside samples spanning at least
// MinOutsideDwell.
type Config struct {
	ExitRadiusMeters  float64
	MinOutsideSamples int
	MinOutsideDwell   time.Duration
}

type pairKey struct {
	eventID string
	userID  string
}

type pairState struct {
	outside      int
	firstOutside time.Time
}

// Monitor accumulates per-pair outside streaks and fires checkouts.  Venue
// coordinates are cached per event; samples for unknown events are dropped.
type Monitor struct {
	cfg    Config
	events EventStore
	ledger Checkout

	mu     sync.Mutex
	pairs  map[pairKey]*pairState
	coords map[string]model.Event
}

// NewMonitor constructs a Monitor.  Zero config fields get safe defaults.
func NewMonitor(cfg Config, events EventStore, checkout Checkout) *Monitor {
	if cfg.ExitRadiusMeters <= 0 {
		cfg.ExitRadiusMeters = 150
	}
	if cfg.MinOutsideSamples < 1 {
		cfg.MinOutsideSamples = 3
	}
	return &Monitor{
		cfg:    cfg,
		events: events,
		ledger: checkout,
		pairs:  make(map[pairKey]*pairState),
		coords: make(map[string]model.Event),
	}
}

// IngestRaw decodes a broker message and feeds it to Ingest.  Used as the
// position-consumer callback.
func (m *Monitor) IngestRaw(body []byte) error {
	var s model.PositionSample
	if err := json.Unmarshal(body, &s); err != nil {
		return fmt.Errorf("unmarshal position sample: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Ingest(ctx, s)
}

// Ingest processes one position sample.  An inside sample resets the
// pair's outside streak and nothing more: re-entry never auto-checks a
// guest back in, that requires a new scan or manual action.  An outside
// sample extends the streak and, once the debounce thresholds are met,
// triggers the internal checkout.  A checkout that finds the guest
// already checked out (manual checkout won the race) is a harmless no-op.
func (m *Monitor) Ingest(ctx context.Context, s model.PositionSample) error {
	ev, err := m.event(ctx, s.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("geofence-monitor: drop sample for unknown event %s", s.EventID)
		return nil
	}
	if err != nil {
		return err
	}

	dist := haversineMeters(s.Latitude, s.Longitude, ev.Latitude, ev.Longitude)
	key := pairKey{eventID: s.EventID, userID: s.UserID}

	m.mu.Lock()
	if dist <= m.cfg.ExitRadiusMeters {
		delete(m.pairs, key)
		m.mu.Unlock()
		return nil
	}
	st := m.pairs[key]
	if st == nil {
		st = &pairState{firstOutside: s.Timestamp}
		m.pairs[key] = st
	}
	st.outside++
	fire := st.outside >= m.cfg.MinOutsideSamples &&
		s.Timestamp.Sub(st.firstOutside) >= m.cfg.MinOutsideDwell
	if fire {
		delete(m.pairs, key)
	}
	m.mu.Unlock()

	if !fire {
		return nil
	}
	if _, err := m.ledger.CheckOut(ctx, s.EventID, s.UserID, ""); err != nil {
		if ledger.IsCode(err, ledger.CodePreconditionFailed) {
			return nil // already checked out, converged
		}
		log.Printf("geofence-monitor: auto checkout failed for event=%s user=%s: %v", s.EventID, s.UserID, err)
		return err
	}
	log.Printf("geofence-monitor: auto checkout event=%s user=%s", s.EventID, s.UserID)
	return nil
}

func (m *Monitor) event(ctx context.Context, eventID string) (model.Event, error) {
	m.mu.Lock()
	ev, ok := m.coords[eventID]
	m.mu.Unlock()
	if ok {
		return ev, nil
	}
	loaded, err := m.events.GetByID(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	m.mu.Lock()
	m.coords[eventID] = *loaded
	m.mu.Unlock()
	return *loaded, nil
}
