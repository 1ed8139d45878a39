package realtime

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

const defaultQueueSize = 64

var ErrHubClosed = errors.New("hub is closed")

// Conn is the write side of one connected viewer.
type Conn interface {
	WriteEvent(Event) error
	Close() error
}

// Subscriber is a registered connection with its own queue and writer
// goroutine.
type Subscriber struct {
	id     uint64
	conn   Conn
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *Subscriber) ID() uint64 {
	return s.id
}

// Done is closed once the subscriber has been unregistered.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Hub fans events out to every registered subscriber. One instance is
// created per process and shared by the publisher and the subscribe
// endpoint.
type Hub struct {
	logger    *slog.Logger
	queueSize int
	nextID    atomic.Uint64

	// publishMu orders publishes so every subscriber sees the same sequence.
	publishMu sync.Mutex

	mu          sync.RWMutex
	subscribers map[uint64]*Subscriber
	closed      bool
}

type Option func(*Hub)

// WithQueueSize sets how many undelivered events a subscriber may hold
// before it is dropped.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		logger:      logger,
		queueSize:   defaultQueueSize,
		subscribers: make(map[uint64]*Subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register adds conn to the subscriber set and starts its writer.
func (h *Hub) Register(conn Conn) (*Subscriber, error) {
	sub := &Subscriber{
		id:     h.nextID.Add(1),
		conn:   conn,
		events: make(chan Event, h.queueSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	go h.writeLoop(sub)

	h.logger.Debug("subscriber registered", "subscriber", sub.id)
	return sub, nil
}

// Unregister removes sub and closes its connection. Calling it more than
// once is a no-op.
func (h *Hub) Unregister(sub *Subscriber) {
	if h.detach(sub) {
		h.closeConn(sub)
	}
}

// drop detaches sub and closes its connection in the background, so a
// writer stuck on a dead peer never holds up the caller.
func (h *Hub) drop(sub *Subscriber) {
	if h.detach(sub) {
		go h.closeConn(sub)
	}
}

func (h *Hub) detach(sub *Subscriber) bool {
	if sub == nil {
		return false
	}

	detached := false
	sub.once.Do(func() {
		h.mu.Lock()
		delete(h.subscribers, sub.id)
		h.mu.Unlock()

		close(sub.done)
		detached = true
	})

	return detached
}

func (h *Hub) closeConn(sub *Subscriber) {
	if err := sub.conn.Close(); err != nil {
		h.logger.Debug("subscriber close failed", "subscriber", sub.id, "error", err)
	}

	h.logger.Debug("subscriber unregistered", "subscriber", sub.id)
}

// Publish enqueues event for every current subscriber without waiting on
// any connection. A subscriber whose queue is full is dropped.
func (h *Hub) Publish(event Event) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.events <- event:
		default:
			h.logger.Warn("subscriber queue full, dropping subscriber",
				"subscriber", sub.id, "action", event.Action)
			h.drop(sub)
		}
	}
}

// Len reports the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close unregisters every subscriber and rejects new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.Unregister(sub)
	}
}

func (h *Hub) writeLoop(sub *Subscriber) {
	for {
		select {
		case <-sub.done:
			return
		case event := <-sub.events:
			if err := sub.conn.WriteEvent(event); err != nil {
				h.logger.Info("subscriber write failed", "subscriber", sub.id, "error", err)
				h.Unregister(sub)
				return
			}
		}
	}
}
