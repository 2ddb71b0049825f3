// Package cache holds the read-through guest-list cache.  It exists for
// dashboard responsiveness only and is never a source of truth: entries
// carry a short TTL and are additionally invalidated by the
// change-propagation push, so a stale read window is bounded by push
// latency rather than TTL.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doorlist/event-admission/internal/model"
	"github.com/doorlist/event-admission/internal/realtime"
)

// GuestList caches the approved guest list per event in Redis.  A nil
// client disables the cache; all lookups miss.
type GuestList struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGuestList constructs the cache.  TTL defaults to 30 seconds.
func NewGuestList(rdb *redis.Client, ttl time.Duration) *GuestList {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &GuestList{rdb: rdb, ttl: ttl}
}

func key(eventID string) string { return "guestlist:" + eventID }

// Get returns the cached list and whether it was present.  Any Redis
// error degrades to a miss.
func (g *GuestList) Get(ctx context.Context, eventID string) ([]model.AdmissionRequest, bool) {
	if g.rdb == nil {
		return nil, false
	}
	body, err := g.rdb.Get(ctx, key(eventID)).Bytes()
	if err != nil {
		return nil, false
	}
	var list []model.AdmissionRequest
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, false
	}
	return list, true
}

// Set stores the list under the event's key.  Best-effort.
func (g *GuestList) Set(ctx context.Context, eventID string, list []model.AdmissionRequest) {
	if g.rdb == nil {
		return
	}
	body, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := g.rdb.Set(ctx, key(eventID), body, g.ttl).Err(); err != nil {
		log.Printf("guestlist-cache: set failed: %v", err)
	}
}

// Invalidate drops the cached list for an event.
func (g *GuestList) Invalidate(ctx context.Context, eventID string) {
	if g.rdb == nil {
		return
	}
	if err := g.rdb.Del(ctx, key(eventID)).Err(); err != nil {
		log.Printf("guestlist-cache: invalidate failed: %v", err)
	}
}

// StartInvalidator listens on all event topics and drops the cached guest
// list whenever an admission-request change is pushed.  It runs until the
// context is cancelled, reconnecting with a fixed delay when the pattern
// subscription drops.
func (g *GuestList) StartInvalidator(ctx context.Context) {
	if g.rdb == nil {
		return
	}
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			ps := g.rdb.PSubscribe(ctx, "event:*")
			for m := range ps.Channel() {
				var ch realtime.Change
				if err := json.Unmarshal([]byte(m.Payload), &ch); err != nil {
					continue
				}
				if ch.Entity != realtime.EntityAdmissionRequest {
					continue
				}
				g.Invalidate(ctx, eventIDFromTopic(m.Channel))
			}
			_ = ps.Close()
			if ctx.Err() != nil {
				return
			}
			log.Printf("guestlist-cache: invalidation feed dropped; resubscribing")
			time.Sleep(2 * time.Second)
		}
	}()
}

func eventIDFromTopic(topic string) string {
	const prefix = "event:"
	if len(topic) > len(prefix) {
		return topic[len(prefix):]
	}
	return ""
}
