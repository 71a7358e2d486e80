package registry

import (
	"sync"

	"github.com/signalsfoundry/sattrack/events"
)

// outbox delivers a registry's events in mutation order. Mutations enqueue
// while holding the registry lock, then call flush after releasing it. Only
// one goroutine drains at a time; a mutation made by a handler, or by another
// goroutine while a drain is running, is delivered by the running drain after
// everything queued before it.
type outbox struct {
	ch *events.Channel

	mu       sync.Mutex
	pending  []events.Event
	draining bool
}

func newOutbox(ch *events.Channel) *outbox {
	return &outbox{ch: ch}
}

// enqueue appends evs. Callers hold the registry lock.
func (o *outbox) enqueue(evs ...events.Event) {
	if o == nil || o.ch == nil {
		return
	}
	o.mu.Lock()
	o.pending = append(o.pending, evs...)
	o.mu.Unlock()
}

// flush publishes queued events unless another call is already doing so.
func (o *outbox) flush() {
	if o == nil || o.ch == nil {
		return
	}
	o.mu.Lock()
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true
	for len(o.pending) > 0 {
		ev := o.pending[0]
		o.pending[0] = events.Event{}
		o.pending = o.pending[1:]
		o.mu.Unlock()
		// Publish recovers handler panics, so draining is always reset.
		o.ch.Publish(ev.Name, ev.Payload)
		o.mu.Lock()
	}
	o.pending = nil
	o.draining = false
	o.mu.Unlock()
}
