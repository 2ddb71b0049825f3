package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Subscription states.  A subscription is an explicit state machine rather
// than a timer-and-counter loop: connecting → subscribed → backoff(n) →
// connecting → … → exhausted, with stopped reachable from anywhere via
// Stop.  Once stopped, no reconnect can be scheduled.
const (
	StateConnecting = "connecting"
	StateSubscribed = "subscribed"
	StateBackoff    = "backoff"
	StateExhausted  = "exhausted"
	StateStopped    = "stopped"
)

// Subscription is a live handle on one topic.  Each reconnect attempt is a
// brand new dial with the same topic and callback; nothing is replayed
// across the gap.  When the retry budget is spent the handle becomes a
// permanent no-op and State reports exhausted so the owning session can
// surface a "live updates stopped, please refresh" notice.
type Subscription struct {
	topic   string
	handler func(Change)
	dial    DialFunc
	opts    Options

	mu       sync.Mutex
	state    string
	attempts int

	stop     chan struct{}
	stopOnce sync.Once
}

func newSubscription(topic string, handler func(Change), dial DialFunc, opts Options) *Subscription {
	return &Subscription{
		topic:   topic,
		handler: handler,
		dial:    dial,
		opts:    opts,
		state:   StateConnecting,
		stop:    make(chan struct{}),
	}
}

// State reports the current state of the subscription.
func (s *Subscription) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop tears the subscription down.  It is safe to call more than once and
// from any state; a stopped subscription never dials again.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Subscription) setState(st string) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Subscription) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// run drives the state machine until the subscription stops or exhausts.
func (s *Subscription) run() {
	if s.dial == nil {
		s.setState(StateExhausted)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.stop
		cancel()
	}()

	for {
		if s.stopped() {
			s.setState(StateStopped)
			return
		}
		s.setState(StateConnecting)
		msgs, closeFn, err := s.dial(ctx, s.topic)
		if err != nil {
			log.Printf("realtime: subscribe %s failed: %v", s.topic, err)
			if !s.backoff() {
				return
			}
			continue
		}
		s.mu.Lock()
		s.state = StateSubscribed
		s.attempts = 0 // a successful subscribe restores the full retry budget
		s.mu.Unlock()

		if !s.receive(msgs, closeFn) {
			return
		}
		// Connection dropped; fall through to backoff before redialing.
		if !s.backoff() {
			return
		}
	}
}

// receive pumps payloads to the handler until the channel closes or the
// subscription stops.  It returns false when the loop should not continue
// to a reconnect (i.e. the subscription was stopped).
func (s *Subscription) receive(msgs <-chan []byte, closeFn func() error) bool {
	defer func() { _ = closeFn() }()
	for {
		select {
		case <-s.stop:
			s.setState(StateStopped)
			return false
		case body, ok := <-msgs:
			if !ok {
				return true
			}
			var ch Change
			if err := json.Unmarshal(body, &ch); err != nil {
				log.Printf("realtime: drop malformed change on %s: %v", s.topic, err)
				continue
			}
			s.handler(ch)
		}
	}
}

// backoff sleeps for the current delay (base doubled per consecutive
// failure) unless the retry budget is spent or the subscription stops
// while waiting.  It returns false when run should exit.
func (s *Subscription) backoff() bool {
	s.mu.Lock()
	s.attempts++
	attempts := s.attempts
	s.mu.Unlock()
	if attempts > s.opts.MaxReconnects {
		s.setState(StateExhausted)
		return false
	}
	delay := s.opts.ReconnectBase << (attempts - 1)
	s.setState(StateBackoff)
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-s.stop:
		s.setState(StateStopped)
		return false
	case <-t.C:
		return true
	}
}
