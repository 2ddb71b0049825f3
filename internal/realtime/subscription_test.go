package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDialer scripts subscription attempts: each call pops the next
// outcome.  An outcome with ok=true hands the subscription a message
// channel the test controls.
type fakeDialer struct {
	mu       sync.Mutex
	attempts int
	script   []bool // per-attempt: does the dial succeed
	conns    chan chan []byte
}

func newFakeDialer(script ...bool) *fakeDialer {
	return &fakeDialer{script: script, conns: make(chan chan []byte, len(script))}
}

func (f *fakeDialer) dial(ctx context.Context, topic string) (<-chan []byte, func() error, error) {
	f.mu.Lock()
	i := f.attempts
	f.attempts++
	f.mu.Unlock()
	ok := false
	if i < len(f.script) {
		ok = f.script[i]
	}
	if !ok {
		return nil, nil, errors.New("dial refused")
	}
	msgs := make(chan []byte)
	f.conns <- msgs
	return msgs, func() error { return nil }, nil
}

func (f *fakeDialer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func opts() Options {
	return Options{ReconnectBase: time.Millisecond, MaxReconnects: 3}
}

func waitState(t *testing.T, s *Subscription, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %q, want %q", s.State(), want)
}

func TestSubscriptionDeliversChanges(t *testing.T) {
	d := newFakeDialer(true)
	var got atomic.Value
	s := newSubscription("event:x", func(ch Change) { got.Store(ch) }, d.dial, opts())
	go s.run()
	defer s.Stop()

	conn := <-d.conns
	waitState(t, s, StateSubscribed)

	body, _ := json.Marshal(Change{Type: ChangeInsert, Entity: EntityAdmissionRequest})
	conn <- body

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v := got.Load(); v != nil {
			ch := v.(Change)
			if ch.Type != ChangeInsert || ch.Entity != EntityAdmissionRequest {
				t.Fatalf("delivered change = %+v", ch)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("change never delivered")
}

func TestSubscriptionReconnectsAfterDrop(t *testing.T) {
	d := newFakeDialer(true, true)
	s := newSubscription("event:x", func(Change) {}, d.dial, opts())
	go s.run()
	defer s.Stop()

	conn := <-d.conns
	waitState(t, s, StateSubscribed)

	close(conn) // simulate the broker dropping the connection
	<-d.conns   // a redial happens after backoff
	waitState(t, s, StateSubscribed)

	if d.count() != 2 {
		t.Fatalf("dial attempts = %d, want 2", d.count())
	}
}

func TestSubscriptionExhaustsRetryBudget(t *testing.T) {
	d := newFakeDialer() // every dial fails
	s := newSubscription("event:x", func(Change) {}, d.dial, opts())
	go s.run()

	waitState(t, s, StateExhausted)
	attempts := d.count()
	if attempts != opts().MaxReconnects+1 {
		t.Fatalf("dial attempts = %d, want %d", attempts, opts().MaxReconnects+1)
	}

	// Exhausted is terminal: no further dials ever happen.
	time.Sleep(20 * time.Millisecond)
	if d.count() != attempts {
		t.Fatalf("dialed again after exhaustion")
	}
}

func TestSubscriptionSuccessResetsBudget(t *testing.T) {
	// Fail twice, connect, drop, then fail MaxReconnects more times: the
	// successful subscribe must have restored the full budget, so the
	// total only exhausts after MaxReconnects+1 post-drop failures.
	script := []bool{false, false, true}
	d := newFakeDialer(script...)
	sub := newSubscription("event:x", func(Change) {}, d.dial, opts())
	go sub.run()
	defer sub.Stop()

	conn := <-d.conns
	waitState(t, sub, StateSubscribed)
	close(conn)

	waitState(t, sub, StateExhausted)
	// The drop itself consumes the first backoff, so MaxReconnects failed
	// redials follow the 3 scripted attempts.
	want := len(script) + opts().MaxReconnects
	if d.count() != want {
		t.Fatalf("dial attempts = %d, want %d", d.count(), want)
	}
}

func TestSubscriptionStop(t *testing.T) {
	d := newFakeDialer(true)
	s := newSubscription("event:x", func(Change) {}, d.dial, opts())
	go s.run()

	<-d.conns
	waitState(t, s, StateSubscribed)

	s.Stop()
	s.Stop() // idempotent
	waitState(t, s, StateStopped)

	time.Sleep(20 * time.Millisecond)
	if d.count() != 1 {
		t.Fatalf("stopped subscription dialed again")
	}
}

func TestSubscribeWithoutBroker(t *testing.T) {
	b := NewBus(nil, Options{})
	s := b.Subscribe("event:x", func(Change) {})
	waitState(t, s, StateExhausted)

	// Publishing without a broker is a silent no-op.
	if err := b.Publish(context.Background(), "event:x", Change{Type: ChangeInsert}); err != nil {
		t.Fatalf("nil-client publish: %v", err)
	}
}

func TestTopics(t *testing.T) {
	if got := EventTopic("abc"); got != "event:abc" {
		t.Fatalf("EventTopic = %q", got)
	}
	if got := UserTopic("abc"); got != "user:abc" {
		t.Fatalf("UserTopic = %q", got)
	}
}
