package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/redis"
)

// DefaultEventTTL covers Stripe's retry horizon for undelivered events.
const DefaultEventTTL = 72 * time.Hour

const (
	ledgerScope = "stripe_event"
	// processingTTL bounds how long a crashed worker can hold an event.
	processingTTL = 5 * time.Minute

	markProcessing = "processing"
	markDone       = "done"
)

// Claim is the outcome of trying to take ownership of an event id.
type Claim int

const (
	ClaimAcquired Claim = iota
	ClaimProcessed
	ClaimInFlight
)

// EventLedger records which Stripe events have been handled. An event moves
// from processing to done; a failed attempt is released so the redelivery runs.
type EventLedger struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewEventLedger(store redis.IdempotencyStore, ttl time.Duration) (*EventLedger, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventLedger{store: store, ttl: ttl}, nil
}

func (l *EventLedger) key(eventID string) string {
	return l.store.IdempotencyKey(ledgerScope, eventID)
}

func (l *EventLedger) Claim(ctx context.Context, eventID string) (Claim, error) {
	if eventID == "" {
		return 0, errors.New("event id is required")
	}
	ok, err := l.store.SetNX(ctx, l.key(eventID), markProcessing, processingTTL)
	if err != nil {
		return 0, fmt.Errorf("claim stripe event %s: %w", eventID, err)
	}
	if ok {
		return ClaimAcquired, nil
	}

	state, err := l.store.Get(ctx, l.key(eventID))
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read stripe event %s: %w", eventID, err)
	}
	if state == markDone {
		return ClaimProcessed, nil
	}
	return ClaimInFlight, nil
}

// Finish keeps the event id for the full retry horizon.
func (l *EventLedger) Finish(ctx context.Context, eventID string) error {
	return l.store.Set(ctx, l.key(eventID), markDone, l.ttl)
}

func (l *EventLedger) Release(ctx context.Context, eventID string) error {
	return l.store.Del(ctx, l.key(eventID))
}
