// Package events provides the synchronous broadcast facility owned by each
// graph. Delivery is in-process and in registration order; a failing
// subscriber is logged and reported but never stops delivery to the rest.
package events

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"activegraph/internal/domain/shared"
	"activegraph/internal/errors"
)

// DefaultMaxDepth bounds nested broadcasts caused by subscribers that
// mutate the graph from inside a callback.
const DefaultMaxDepth = 32

// Subscriber receives every event broadcast on a bus.
type Subscriber interface {
	Handle(event shared.Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(event shared.Event) error

// Handle calls f.
func (f SubscriberFunc) Handle(event shared.Event) error {
	return f(event)
}

// SubscriptionID identifies a registration. Zero is never issued.
type SubscriptionID uint64

// FailureHook observes subscriber failures, including breaker rejections.
type FailureHook func(event shared.Event, id SubscriptionID, err error)

// BreakerConfig configures the per-subscriber circuit breaker.
type BreakerConfig struct {
	Enabled      bool
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns a configuration that trips after most of at
// least five recent deliveries failed.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:      false,
		MaxRequests:  1,
		Interval:     30 * time.Second,
		Timeout:      60 * time.Second,
		FailureRatio: 0.8,
		MinRequests:  5,
	}
}

type subscription struct {
	id         SubscriptionID
	subscriber Subscriber
	breaker    *gobreaker.CircuitBreaker
}

// Bus is not safe for concurrent use; it shares the single logical thread
// of the graph that owns it.
type Bus struct {
	subs      []*subscription
	nextID    SubscriptionID
	seq       uint64
	depth     int
	maxDepth  int
	breaker   BreakerConfig
	onFailure FailureHook
	logger    *zap.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithMaxDepth sets the maximum broadcast nesting depth. Values below one
// are ignored.
func WithMaxDepth(depth int) Option {
	return func(b *Bus) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// WithBreaker installs a circuit breaker in front of every subscriber
// registered afterwards.
func WithBreaker(cfg BreakerConfig) Option {
	return func(b *Bus) { b.breaker = cfg }
}

// WithFailureHook registers a callback for subscriber failures.
func WithFailureHook(hook FailureHook) Option {
	return func(b *Bus) { b.onFailure = hook }
}

// NewBus creates an empty bus. A nil logger discards output.
func NewBus(logger *zap.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		maxDepth: DefaultMaxDepth,
		breaker:  DefaultBreakerConfig(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers s and returns its handle. s receives only events
// broadcast after this call returns.
func (b *Bus) Subscribe(s Subscriber) SubscriptionID {
	b.nextID++
	sub := &subscription{id: b.nextID, subscriber: s}
	if b.breaker.Enabled {
		sub.breaker = b.newBreaker(sub.id)
	}
	b.subs = append(b.subs, sub)

	b.logger.Debug("Subscriber registered",
		zap.Uint64("subscription_id", uint64(sub.id)),
		zap.Int("total_subscribers", len(b.subs)))
	return sub.id
}

// Unsubscribe removes a registration. A broadcast already in progress still
// delivers to the subscriber it captured.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered subscribers.
func (b *Bus) Len() int { return len(b.subs) }

// Seq returns the sequence number of the most recent event.
func (b *Bus) Seq() uint64 { return b.seq }

// Depth returns the current nesting depth; zero outside any broadcast.
func (b *Bus) Depth() int { return b.depth }

// Broadcast delivers an event to every subscriber registered when the call
// starts. It returns true when every one of them handled the event without
// error. A broadcast that would exceed the nesting limit is dropped and
// returns false.
func (b *Bus) Broadcast(eventType shared.EventType, payload shared.Describer) bool {
	if b.depth >= b.maxDepth {
		b.logger.Error("Broadcast rejected: nesting limit reached",
			zap.String("event_type", eventType.String()),
			zap.Int("max_depth", b.maxDepth))
		return false
	}

	b.depth++
	defer func() { b.depth-- }()

	b.seq++
	event := shared.Event{Type: eventType, Payload: payload, Seq: b.seq}

	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)

	delivered := true
	for _, sub := range snapshot {
		if err := b.deliver(sub, event); err != nil {
			delivered = false
			b.logger.Error("Event subscriber failed",
				zap.String("event_type", eventType.String()),
				zap.Uint64("event_seq", event.Seq),
				zap.Uint64("subscription_id", uint64(sub.id)),
				zap.Error(err))
			if b.onFailure != nil {
				b.onFailure(event, sub.id, err)
			}
		}
	}
	return delivered
}

func (b *Bus) deliver(sub *subscription, event shared.Event) error {
	if sub.breaker == nil {
		return safeHandle(sub.subscriber, event)
	}
	_, err := sub.breaker.Execute(func() (interface{}, error) {
		return nil, safeHandle(sub.subscriber, event)
	})
	return err
}

func (b *Bus) newBreaker(id SubscriptionID) *gobreaker.CircuitBreaker {
	cfg := b.breaker
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("subscriber-%d", id),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Warn("Subscriber circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// safeHandle turns a subscriber panic into an error.
func safeHandle(s Subscriber, event shared.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(errors.CodeSubscriberPanic.String(), "subscriber panicked").
				WithOperation("Broadcast").
				WithDetails(fmt.Sprint(r)).
				Build()
		}
	}()
	return s.Handle(event)
}
