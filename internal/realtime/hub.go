package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bharatverse/bharatverse/internal/models"
)

const subscriberBuffer = 16

var ErrUnknownCollection = errors.New("realtime: unknown collection")

var collections = map[string]struct{}{
	models.CollectionStories:     {},
	models.CollectionEnvironment: {},
	models.CollectionWisdom:      {},
}

func ValidCollection(name string) bool {
	_, ok := collections[name]
	return ok
}

// Subscription delivers change events for one collection until Close is called.
type Subscription struct {
	C <-chan models.ChangeEvent

	hub        *Hub
	id         uint64
	collection string
	ch         chan models.ChangeEvent
	once       sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s) })
}

// Hub fans change events out to in-process subscribers. With a Redis client attached,
// published events are relayed through a pub/sub channel so every instance delivers
// them.
type Hub struct {
	logger   *zap.SugaredLogger
	redis    *redis.Client
	channel  string
	origin   string
	mu       sync.RWMutex
	nextID   uint64
	subs     map[string]map[uint64]*Subscription
	dropped  atomic.Uint64
	closed   bool
	closeFns []func()
}

type Option func(*Hub)

// WithRedis relays events through channel on client.
func WithRedis(client *redis.Client, channel string) Option {
	return func(h *Hub) {
		h.redis = client
		h.channel = channel
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logger: zap.NewNop().Sugar(),
		origin: uuid.NewString(),
		subs:   make(map[string]map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Subscribe(collection string) (*Subscription, error) {
	if !ValidCollection(collection) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan models.ChangeEvent, subscriberBuffer)
	sub := &Subscription{C: ch, hub: h, id: h.nextID, collection: collection, ch: ch}

	if h.closed {
		close(ch)
		return sub, nil
	}

	if h.subs[collection] == nil {
		h.subs[collection] = make(map[uint64]*Subscription)
	}
	h.subs[collection][sub.id] = sub
	return sub, nil
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.collection]; ok {
		if _, ok := set[sub.id]; ok {
			delete(set, sub.id)
			close(sub.ch)
		}
	}
}

// Publish delivers event locally and, when a relay is configured, to other instances.
func (h *Hub) Publish(ctx context.Context, event models.ChangeEvent) error {
	if !ValidCollection(event.Collection) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, event.Collection)
	}

	h.deliver(event)

	if h.redis == nil {
		return nil
	}

	payload, err := json.Marshal(relayEnvelope{Origin: h.origin, Event: event})
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := h.redis.Publish(ctx, h.channel, payload).Err(); err != nil {
		return fmt.Errorf("relay change event: %w", err)
	}
	return nil
}

// deliver never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) deliver(event models.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs[event.Collection] {
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
			h.logger.Debugw("dropping change event for slow subscriber", "collection", event.Collection, "subscriber", sub.id)
		}
	}
}

// Dropped reports how many events were skipped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, set := range h.subs {
		for id, sub := range set {
			close(sub.ch)
			delete(set, id)
		}
	}
	fns := h.closeFns
	h.closeFns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
