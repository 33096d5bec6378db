// Package observer broadcasts protocol-level occurrences (connection state
// changes, completed mission plans, operator notices) to any number of
// subscribers, adapted from the CAN frame hub's broadcast/backpressure
// pattern onto a small closed set of typed events instead of wire frames.
package observer

import (
	"sync"

	"github.com/kstaniek/iips-core/internal/logging"
	"github.com/kstaniek/iips-core/internal/metrics"
)

// Event is implemented by every occurrence the registry can broadcast.
type Event interface{ isEvent() }

// ConnectionChanged is broadcast whenever the connection monitor's state
// transitions.
type ConnectionChanged struct {
	Connected bool
}

func (ConnectionChanged) isEvent() {}

// PlanReady is broadcast once a completed mission upload has been written
// out by a plan emitter.
type PlanReady struct {
	Path string
}

func (PlanReady) isEvent() {}

// Notice is a free-text operator-facing occurrence (rejected uploads,
// sender mismatches, and the like).
type Notice struct {
	Text string
}

func (Notice) isEvent() {}

// BackpressurePolicy decides what happens when a subscriber's queue is full.
type BackpressurePolicy int

const (
	// PolicyDrop discards the event for that one subscriber.
	PolicyDrop BackpressurePolicy = iota
	// PolicyKick closes the subscriber; the owning reader removes it.
	PolicyKick
)

// Subscriber is one registered listener.
type Subscriber struct {
	Out       chan Event
	Closed    chan struct{}
	closeOnce sync.Once
}

// Close signals the subscriber is closed (idempotent).
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.Closed)
	})
}

// NewSubscriber allocates a Subscriber with the given output queue depth.
func NewSubscriber(bufSize int) *Subscriber {
	return &Subscriber{Out: make(chan Event, bufSize), Closed: make(chan struct{})}
}

// Registry is the broadcast hub: every Notify call fans out to every
// currently registered Subscriber.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	Policy      BackpressurePolicy
}

// New creates an empty Registry with PolicyDrop.
func New() *Registry {
	return &Registry{subscribers: make(map[*Subscriber]struct{})}
}

// Subscribe registers s with the registry.
func (r *Registry) Subscribe(s *Subscriber) {
	r.mu.Lock()
	prev := len(r.subscribers)
	r.subscribers[s] = struct{}{}
	cur := len(r.subscribers)
	r.mu.Unlock()
	if prev == 0 && cur == 1 {
		logging.L().Info("observer_first_subscriber")
	}
}

// Unsubscribe removes s; safe to call multiple times.
func (r *Registry) Unsubscribe(s *Subscriber) {
	r.mu.Lock()
	_, existed := r.subscribers[s]
	if existed {
		delete(r.subscribers, s)
	}
	cur := len(r.subscribers)
	r.mu.Unlock()
	select {
	case <-s.Closed:
	default:
		s.Close()
	}
	if existed && cur == 0 {
		logging.L().Info("observer_last_subscriber_gone")
	}
}

// Notify fans ev out to every registered subscriber, honoring Policy when a
// subscriber's queue is full.
func (r *Registry) Notify(ev Event) {
	subs := r.Snapshot()
	for _, s := range subs {
		select {
		case s.Out <- ev:
		default:
			if r.Policy == PolicyKick {
				metrics.IncError(metrics.ErrSend)
				s.Close()
			}
		}
	}
}

// Snapshot returns a slice copy of currently registered subscribers.
func (r *Registry) Snapshot() []*Subscriber {
	r.mu.RLock()
	subs := make([]*Subscriber, 0, len(r.subscribers))
	for s := range r.subscribers {
		subs = append(subs, s)
	}
	r.mu.RUnlock()
	return subs
}

// Count returns the number of registered subscribers.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.subscribers)
	r.mu.RUnlock()
	return n
}
