package session

import (
	"slices"
	"sync"

	"github.com/danmuck/dectmail/internal/protocol/frame"
)

// Waiter is a one-shot subscription to a set of primitives.
type Waiter struct {
	id      uint64
	targets []frame.Primitive
	done    chan Inbound
}

// Done delivers at most one inbound mail.
func (w *Waiter) Done() <-chan Inbound {
	return w.done
}

func (w *Waiter) Targets() []frame.Primitive {
	return slices.Clone(w.targets)
}

// Waiters is the registry of live waiters. Every waiter whose target set
// contains an inbound primitive resolves on that mail.
type Waiters struct {
	mu    sync.Mutex
	next  uint64
	items map[uint64]*Waiter
}

func NewWaiters() *Waiters {
	return &Waiters{items: make(map[uint64]*Waiter)}
}

func (r *Waiters) Register(targets ...frame.Primitive) *Waiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	w := &Waiter{
		id:      r.next,
		targets: slices.Clone(targets),
		done:    make(chan Inbound, 1),
	}
	r.items[w.id] = w
	return w
}

// Offer resolves and unregisters every matching waiter. It returns how many
// resolved.
func (r *Waiters) Offer(in Inbound) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, w := range r.items {
		if !matches(w.targets, in.Primitive()) {
			continue
		}
		delete(r.items, id)
		w.done <- in
		n++
	}
	return n
}

// Cancel unregisters w. False means w already resolved or was cancelled.
func (r *Waiters) Cancel(w *Waiter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[w.id]; !ok {
		return false
	}
	delete(r.items, w.id)
	return true
}

func (r *Waiters) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
