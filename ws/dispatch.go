package ws

import "sync"

// Handler receives one event per call. Calls never overlap: the reader does
// not pick up the next event until the handler returns. A handler that does
// slow work must hand it off to its own goroutine rather than block here.
// A handler may re-register (or clear) the handler from inside itself.
type Handler func(Event)

// registry is the single mutable callback slot. The slot is snapshotted
// under the mutex and invoked outside it, so exactly one of the old or new
// handler sees any given event and a handler can safely swap the slot from
// within its own invocation. A delivery already in flight when set returns
// completes with the prior handler.
type registry struct {
	mu      sync.Mutex
	handler Handler
}

// set installs h, replacing any prior handler. A nil h clears the slot.
func (r *registry) set(h Handler) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

// dispatch delivers ev to the current handler. Events arriving while no
// handler is registered are dropped; that is the expected configuration for
// write-only clients.
func (r *registry) dispatch(ev Event) {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()

	if h != nil {
		h(ev)
	}
}
