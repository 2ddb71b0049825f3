package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DialFunc opens one subscription attempt for a topic.  It returns a
// channel of raw payloads that closes when the underlying connection
// drops, and a close function for teardown.  The indirection exists so the
// reconnect state machine can be exercised without a broker.
type DialFunc func(ctx context.Context, topic string) (<-chan []byte, func() error, error)

// Options tune the subscribe side of the bus.
type Options struct {
	ReconnectBase time.Duration // first backoff delay; doubles per attempt
	MaxReconnects int           // attempts before a subscription goes exhausted
}

// Bus publishes ledger changes and hands out reconnecting subscriptions.
// A Bus constructed with a nil Redis client degrades to a no-op publisher,
// mirroring how the rate limiter behaves when Redis is absent: the ledgers
// keep working, dashboards fall back to manual refresh.
type Bus struct {
	rdb  *redis.Client
	dial DialFunc
	opts Options
}

// NewBus returns a Bus backed by Redis pub/sub.
func NewBus(rdb *redis.Client, opts Options) *Bus {
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = 500 * time.Millisecond
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 8
	}
	b := &Bus{rdb: rdb, opts: opts}
	if rdb != nil {
		b.dial = redisDial(rdb)
	}
	return b
}

// Publish sends a change to a topic.  Failures are logged and returned;
// callers treat publishing as best-effort and never roll back a committed
// ledger write because a notification was lost.
func (b *Bus) Publish(ctx context.Context, topic string, ch Change) error {
	if b.rdb == nil {
		return nil
	}
	body, err := json.Marshal(ch)
	if err != nil {
		log.Printf("realtime: marshal change failed: %v", err)
		return err
	}
	if err := b.rdb.Publish(ctx, topic, body).Err(); err != nil {
		log.Printf("realtime: publish to %s failed: %v", topic, err)
		return err
	}
	return nil
}

// Subscribe registers a callback for a topic and starts the reconnecting
// receive loop.  The returned subscription must be stopped when the
// session ends.  With no broker configured the handle is born exhausted.
func (b *Bus) Subscribe(topic string, handler func(Change)) *Subscription {
	s := newSubscription(topic, handler, b.dial, b.opts)
	go s.run()
	return s
}

// redisDial adapts a go-redis PubSub to the DialFunc contract.  The
// initial Receive confirms the SUBSCRIBE before the attempt counts as
// connected; afterwards the message channel closes when the connection
// drops, which the subscription observes as a disconnect.
func redisDial(rdb *redis.Client) DialFunc {
	return func(ctx context.Context, topic string) (<-chan []byte, func() error, error) {
		ps := rdb.Subscribe(ctx, topic)
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return nil, nil, err
		}
		out := make(chan []byte)
		go func() {
			defer close(out)
			for m := range ps.Channel() {
				out <- []byte(m.Payload)
			}
		}()
		return out, ps.Close, nil
	}
}
