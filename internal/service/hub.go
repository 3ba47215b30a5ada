package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Topic names a collection whose mutations wake subscribers.
type Topic string

const (
	TopicCatalog Topic = "food_items"
	TopicLedger  Topic = "logged_entries"
)

type listener struct {
	topics []Topic
	notify chan struct{}
}

// Hub fans out change notifications from the stores to live subscriptions.
type Hub struct {
	mu        sync.Mutex
	listeners map[uuid.UUID]*listener
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[uuid.UUID]*listener)}
}

// Publish marks every subscription interested in topic as stale. It never blocks.
func (h *Hub) Publish(topics ...Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.listeners {
		for _, t := range topics {
			if slices.Contains(l.topics, t) {
				select {
				case l.notify <- struct{}{}:
				default:
				}
				break
			}
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

func (h *Hub) listen(topics []Topic) (uuid.UUID, <-chan struct{}) {
	id := uuid.New()
	l := &listener{topics: topics, notify: make(chan struct{}, 1)}
	h.mu.Lock()
	h.listeners[id] = l
	h.mu.Unlock()
	return id, l.notify
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	delete(h.listeners, id)
	h.mu.Unlock()
}

// Subscription delivers a snapshot on start and after every relevant mutation.
// Unread snapshots are replaced by newer ones. The channel closes when the
// subscription is closed, its context ends, or a reload fails (see Err).
type Subscription[T any] struct {
	ID     uuid.UUID
	out    chan T
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func (s *Subscription[T]) C() <-chan T {
	return s.out
}

// Close stops the subscription and waits for its goroutine to exit.
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.done
}

// Err returns the load error that ended the subscription, if any.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func watch[T any](ctx context.Context, h *Hub, logger *slog.Logger, load func(context.Context) (T, error), topics ...Topic) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	id, notify := h.listen(topics)
	s := &Subscription[T]{
		ID:     id,
		out:    make(chan T, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.out)
		defer h.remove(id)
		for {
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("subscription reload failed", "subscription", id, "error", err)
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				return
			}
			select {
			case <-s.out:
			default:
			}
			s.out <- snapshot

			select {
			case <-ctx.Done():
				return
			case <-notify:
			}
		}
	}()
	return s
}
