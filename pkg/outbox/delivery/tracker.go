// Package delivery remembers which outbox events already reached Pub/Sub.
//
// Keys look like portal:idempotency:delivered:<publisher>:<event_id> and hold
// the delivery time. They expire after the configured TTL, which should exceed
// the longest window in which a published row can stay unmarked.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/pkg/redis"
)

type Tracker struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

func NewTracker(store redis.IdempotencyStore, ttl time.Duration) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("delivery store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("delivery ttl must be positive")
	}
	return &Tracker{store: store, ttl: ttl, now: time.Now}, nil
}

// Seen reports whether publisher already delivered eventID.
func (t *Tracker) Seen(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error) {
	key, err := t.key(publisher, eventID)
	if err != nil {
		return false, err
	}
	if _, err := t.store.Get(ctx, key); err != nil {
		if redis.IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkDelivered records the delivery and reports whether this call was the
// first to do so.
func (t *Tracker) MarkDelivered(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error) {
	key, err := t.key(publisher, eventID)
	if err != nil {
		return false, err
	}
	return t.store.SetNX(ctx, key, t.now().UTC().Format(time.RFC3339), t.ttl)
}

func (t *Tracker) key(publisher string, eventID uuid.UUID) (string, error) {
	if publisher == "" {
		return "", errors.New("publisher name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return t.store.IdempotencyKey("delivered:"+publisher, eventID.String()), nil
}
