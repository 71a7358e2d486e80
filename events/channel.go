// Package events is the synchronous publish/subscribe channel that connects
// registry mutations to UI listeners.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/signalsfoundry/sattrack/internal/logging"
)

// Name identifies an event stream.
type Name string

// Event names published by the registries.
const (
	ObserverAdded    Name = "observer-added"
	ObserverRemoved  Name = "observer-removed"
	ObserversUpdated Name = "observers-updated"

	TLEAdded             Name = "tle-added"
	TLERemoved           Name = "tle-removed"
	TLEVisibilityChanged Name = "tle-visibility-changed"
	TLEsCleared          Name = "tles-cleared"
	TLEsUpdated          Name = "tles-updated"
)

// ObserverNames and TLENames list the names each registry can publish.
var (
	ObserverNames = []Name{ObserverAdded, ObserverRemoved, ObserversUpdated}
	TLENames      = []Name{TLEAdded, TLERemoved, TLEVisibilityChanged, TLEsCleared, TLEsUpdated}
)

// AllNames returns a fresh slice of every known event name.
func AllNames() []Name {
	out := make([]Name, 0, len(ObserverNames)+len(TLENames))
	out = append(out, ObserverNames...)
	return append(out, TLENames...)
}

// Event is delivered to handlers.
type Event struct {
	Name    Name
	Payload any
}

// Handler receives events. It runs on the publisher's goroutine.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// Channel fans events out to handlers registered per name.
//
// Handlers are invoked synchronously, once per registration, in the order they
// subscribed. Registering the same function twice delivers every event to it
// twice.
type Channel struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Name][]subscription

	log logging.Logger
}

// NewChannel constructs an empty channel. Handler panics are reported to log.
func NewChannel(log logging.Logger) *Channel {
	if log == nil {
		log = logging.Noop()
	}
	return &Channel{
		subs: make(map[Name][]subscription),
		log:  log,
	}
}

// Subscribe registers fn for name. The returned function removes exactly this
// registration; calling it more than once is harmless.
func (c *Channel) Subscribe(name Name, fn Handler) (unsubscribe func()) {
	return c.SubscribeMany(fn, name)
}

// SubscribeMany registers fn for each of names under a single unsubscribe.
func (c *Channel) SubscribeMany(fn Handler, names ...Name) (unsubscribe func()) {
	if fn == nil || len(names) == 0 {
		return func() {}
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	for _, name := range names {
		c.subs[name] = append(c.subs[name], subscription{id: id, fn: fn})
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(id, names) })
	}
}

func (c *Channel) remove(id uint64, names []Name) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range names {
		subs := c.subs[name]
		kept := subs[:0:0]
		for _, s := range subs {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(c.subs, name)
			continue
		}
		c.subs[name] = kept
	}
}

// Publish delivers payload to every handler registered for name when the call
// starts. A panicking handler is logged and skipped; the remaining handlers
// still run and the panic does not reach the caller.
func (c *Channel) Publish(name Name, payload any) {
	c.mu.RLock()
	subs := append([]subscription(nil), c.subs[name]...)
	c.mu.RUnlock()

	// Handlers run outside the lock so they can subscribe or publish.
	ev := Event{Name: name, Payload: payload}
	for _, s := range subs {
		c.invoke(s.fn, ev)
	}
}

func (c *Channel) invoke(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error(context.Background(), "event handler panicked",
				logging.String("event", string(ev.Name)),
				logging.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	fn(ev)
}

// SubscriberCount returns the number of registrations for name.
func (c *Channel) SubscriberCount(name Name) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs[name])
}
