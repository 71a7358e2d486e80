package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/signalsfoundry/sattrack/events"
	"github.com/signalsfoundry/sattrack/internal/logging"
	"github.com/signalsfoundry/sattrack/model"
)

// ObserverRegistry holds the named ground observers. Every successful
// mutation is written through to storage and then announced on the event
// channel.
type ObserverRegistry struct {
	mu        sync.RWMutex
	observers *orderedMap[model.Observer]

	mirror  *mirror
	events  *events.Channel
	outbox  *outbox
	log     logging.Logger
	metrics MetricsRecorder
}

// NewObserverRegistry hydrates a registry from store's "observers" key. A nil
// channel gets a private one, reachable through Events.
func NewObserverRegistry(store Storage, ch *events.Channel, opts ...Option) *ObserverRegistry {
	o := buildOptions(opts)
	if ch == nil {
		ch = events.NewChannel(o.log)
	}
	r := &ObserverRegistry{
		observers: newOrderedMap[model.Observer](),
		mirror:    newMirror(store, ObserversKey, "observers", o),
		events:    ch,
		outbox:    newOutbox(ch),
		log:       o.log.With(logging.String("registry", "observers")),
		metrics:   o.metrics,
	}
	r.hydrate()
	r.recordCount()
	return r
}

// Events returns the channel the registry publishes on.
func (r *ObserverRegistry) Events() *events.Channel { return r.events }

// Add validates in and appends it. It fails with an error matching
// ErrValidation for a missing name or coordinate and ErrDuplicateKey when the
// exact name is taken; in both cases nothing changes and nothing is published.
func (r *ObserverRegistry) Add(in model.ObserverInput) (model.Observer, error) {
	obs, err := validateObserver(in)
	if err != nil {
		return model.Observer{}, err
	}

	r.mu.Lock()
	if r.observers.Has(obs.Name) {
		r.mu.Unlock()
		return model.Observer{}, fmt.Errorf("%w: observer %q already exists", ErrDuplicateKey, obs.Name)
	}
	r.observers.Set(obs.Name, obs)
	list := r.observers.Values(nil)
	r.persistLocked(list)
	r.outbox.enqueue(
		events.Event{Name: events.ObserverAdded, Payload: obs},
		events.Event{Name: events.ObserversUpdated, Payload: list},
	)
	r.mu.Unlock()

	r.log.Info(context.Background(), "observer added", logging.String("name", obs.Name))
	r.outbox.flush()
	return obs, nil
}

// Remove deletes the observer with exactly this name. An unknown name is a
// no-op: false is returned and nothing is written or published.
func (r *ObserverRegistry) Remove(name string) bool {
	r.mu.Lock()
	obs, ok := r.observers.Delete(name)
	if !ok {
		r.mu.Unlock()
		return false
	}
	list := r.observers.Values(nil)
	r.persistLocked(list)
	r.outbox.enqueue(
		events.Event{Name: events.ObserverRemoved, Payload: obs},
		events.Event{Name: events.ObserversUpdated, Payload: list},
	)
	r.mu.Unlock()

	r.log.Info(context.Background(), "observer removed", logging.String("name", name))
	r.outbox.flush()
	return true
}

// Get returns the observer with exactly this name.
func (r *ObserverRegistry) Get(name string) (model.Observer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observers.Get(name)
}

// List returns the observers in insertion order. The slice is a copy.
func (r *ObserverRegistry) List() []model.Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observers.Values(nil)
}

// Len returns the number of observers.
func (r *ObserverRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observers.Len()
}

// persistLocked overwrites the stored array with list. Callers hold r.mu.
func (r *ObserverRegistry) persistLocked(list []model.Observer) {
	data, err := json.Marshal(list)
	r.mirror.save(data, err)
	r.recordCountLocked(len(list))
}

func (r *ObserverRegistry) recordCount() {
	r.recordCountLocked(r.observers.Len())
}

func (r *ObserverRegistry) recordCountLocked(n int) {
	if r.metrics != nil {
		r.metrics.SetObserverCount(n)
	}
}

func (r *ObserverRegistry) hydrate() {
	raw, ok := r.mirror.load()
	if !ok {
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		r.mirror.discard(err)
		return
	}

	ctx := context.Background()
	for i, item := range items {
		var stored storedObserver
		if err := json.Unmarshal(item, &stored); err != nil {
			r.log.Warn(ctx, "skipping unreadable stored observer", logging.Int("index", i), logging.Err(err))
			continue
		}
		obs, err := validateObserver(stored.input())
		if err != nil {
			r.log.Warn(ctx, "skipping invalid stored observer", logging.Int("index", i), logging.Err(err))
			continue
		}
		if r.observers.Has(obs.Name) {
			r.log.Warn(ctx, "skipping duplicate stored observer", logging.String("name", obs.Name))
			continue
		}
		r.observers.Set(obs.Name, obs)
	}
	r.log.Info(ctx, "observers loaded from storage", logging.Int("count", r.observers.Len()))
}

// validateObserver rejects absent fields and impossible coordinates. Zero is
// a valid latitude and longitude.
func validateObserver(in model.ObserverInput) (model.Observer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Observer{}, &ValidationError{Field: "name", Reason: "is required"}
	}
	if in.Latitude == nil {
		return model.Observer{}, &ValidationError{Field: "latitude", Reason: "is required"}
	}
	if in.Longitude == nil {
		return model.Observer{}, &ValidationError{Field: "longitude", Reason: "is required"}
	}
	if err := checkCoordinate("latitude", *in.Latitude, 90); err != nil {
		return model.Observer{}, err
	}
	if err := checkCoordinate("longitude", *in.Longitude, 180); err != nil {
		return model.Observer{}, err
	}
	return model.Observer{Name: in.Name, Latitude: *in.Latitude, Longitude: *in.Longitude}, nil
}

func checkCoordinate(field string, v, limit float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if v < -limit || v > limit {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be within ±%g", limit)}
	}
	return nil
}

// storedObserver accepts coordinates saved either as numbers or as numeric
// strings, which is how form input used to be written.
type storedObserver struct {
	Name      string     `json:"name"`
	Latitude  *flexFloat `json:"latitude"`
	Longitude *flexFloat `json:"longitude"`
}

func (s storedObserver) input() model.ObserverInput {
	in := model.ObserverInput{Name: s.Name}
	if s.Latitude != nil {
		v := float64(*s.Latitude)
		in.Latitude = &v
	}
	if s.Longitude != nil {
		v := float64(*s.Longitude)
		in.Longitude = &v
	}
	return in
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("coordinate must be a number: %s", b)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("coordinate must be a number: %w", err)
	}
	*f = flexFloat(n)
	return nil
}
