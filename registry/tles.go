package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/signalsfoundry/sattrack/events"
	"github.com/signalsfoundry/sattrack/internal/logging"
	"github.com/signalsfoundry/sattrack/model"
)

// TleRegistry holds element sets keyed by model.NormalizeKey(name). Lookups
// and mutations report success as a bool; there are no error returns.
//
// Records hidden with ToggleVisibility stay stored but are left out of GetAll.
type TleRegistry struct {
	mu   sync.RWMutex
	tles *orderedMap[model.TLERecord]

	mirror  *mirror
	outbox  *outbox // publishes nothing unless WithEvents was given
	log     logging.Logger
	metrics MetricsRecorder
}

// NewTleRegistry hydrates a registry from store's "tleData" key.
func NewTleRegistry(store Storage, opts ...Option) *TleRegistry {
	o := buildOptions(opts)
	r := &TleRegistry{
		tles:    newOrderedMap[model.TLERecord](),
		mirror:  newMirror(store, TLEKey, "tles", o),
		outbox:  newOutbox(o.events),
		log:     o.log.With(logging.String("registry", "tles")),
		metrics: o.metrics,
	}
	r.hydrate()
	r.recordCountsLocked()
	return r
}

// Add stores a trimmed, visible copy of entry. It returns false, changing
// nothing, when the normalized name is blank or already present, so feeds can
// be re-ingested safely.
func (r *TleRegistry) Add(entry model.TLEEntry) bool {
	rec := model.NewTLERecord(entry)
	key := rec.Key()
	if key == "" {
		return false
	}

	r.mu.Lock()
	if r.tles.Has(key) {
		r.mu.Unlock()
		return false
	}
	r.tles.Set(key, rec)
	r.persistLocked()
	r.outbox.enqueue(
		events.Event{Name: events.TLEAdded, Payload: rec},
		events.Event{Name: events.TLEsUpdated, Payload: r.visibleLocked()},
	)
	r.mu.Unlock()

	r.outbox.flush()
	return true
}

// Import adds every entry not already present and writes storage once.
// It returns how many entries were added.
func (r *TleRegistry) Import(entries []model.TLEEntry) int {
	var added []model.TLERecord

	r.mu.Lock()
	for _, e := range entries {
		rec := model.NewTLERecord(e)
		key := rec.Key()
		if key == "" || r.tles.Has(key) {
			continue
		}
		r.tles.Set(key, rec)
		added = append(added, rec)
	}
	if len(added) == 0 {
		r.mu.Unlock()
		return 0
	}
	r.persistLocked()
	for _, rec := range added {
		r.outbox.enqueue(events.Event{Name: events.TLEAdded, Payload: rec})
	}
	r.outbox.enqueue(events.Event{Name: events.TLEsUpdated, Payload: r.visibleLocked()})
	r.mu.Unlock()

	r.log.Info(context.Background(), "TLE entries imported",
		logging.Int("added", len(added)),
		logging.Int("skipped", len(entries)-len(added)),
	)
	r.outbox.flush()
	return len(added)
}

// ToggleVisibility flips the record's map visibility. It returns false when
// no record has this normalized name.
func (r *TleRegistry) ToggleVisibility(name string) bool {
	_, ok := r.Toggle(name)
	return ok
}

// Toggle is ToggleVisibility returning the record as it was stored.
func (r *TleRegistry) Toggle(name string) (model.TLERecord, bool) {
	key := model.NormalizeKey(name)

	r.mu.Lock()
	rec, ok := r.tles.Get(key)
	if !ok {
		r.mu.Unlock()
		return model.TLERecord{}, false
	}
	rec.VisibleOnMap = !rec.VisibleOnMap
	r.tles.Set(key, rec)
	r.persistLocked()
	r.outbox.enqueue(
		events.Event{Name: events.TLEVisibilityChanged, Payload: rec},
		events.Event{Name: events.TLEsUpdated, Payload: r.visibleLocked()},
	)
	r.mu.Unlock()

	r.outbox.flush()
	return rec, true
}

// Remove deletes the record with this normalized name and reports whether one
// existed. Storage is written only when something was deleted.
func (r *TleRegistry) Remove(name string) bool {
	key := model.NormalizeKey(name)

	r.mu.Lock()
	rec, ok := r.tles.Delete(key)
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.persistLocked()
	r.outbox.enqueue(
		events.Event{Name: events.TLERemoved, Payload: rec},
		events.Event{Name: events.TLEsUpdated, Payload: r.visibleLocked()},
	)
	r.mu.Unlock()

	r.outbox.flush()
	return true
}

// ClearAll drops every record, hidden ones included, and writes the empty
// mapping.
func (r *TleRegistry) ClearAll() {
	r.mu.Lock()
	n := r.tles.Len()
	r.tles.Clear()
	r.persistLocked()
	r.outbox.enqueue(
		events.Event{Name: events.TLEsCleared, Payload: n},
		events.Event{Name: events.TLEsUpdated, Payload: []model.TLERecord{}},
	)
	r.mu.Unlock()

	r.log.Info(context.Background(), "TLE registry cleared", logging.Int("removed", n))
	r.outbox.flush()
}

// GetAll returns the visible records in insertion order. This is what the map
// renders. The slice is a copy.
func (r *TleRegistry) GetAll() []model.TLERecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visibleLocked()
}

// Entries returns every record, hidden ones included, in insertion order.
func (r *TleRegistry) Entries() []model.TLERecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tles.Values(nil)
}

// Get looks a record up by name, normalizing it first.
func (r *TleRegistry) Get(name string) (model.TLERecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tles.Get(model.NormalizeKey(name))
}

// Len returns the number of stored records.
func (r *TleRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tles.Len()
}

// VisibleLen returns the number of records GetAll would return.
func (r *TleRegistry) VisibleLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.visibleLocked())
}

func (r *TleRegistry) visibleLocked() []model.TLERecord {
	return r.tles.Values(func(rec model.TLERecord) bool { return rec.VisibleOnMap })
}

// persistLocked overwrites the stored object. Callers hold r.mu.
func (r *TleRegistry) persistLocked() {
	data, err := encodeTLEs(r.tles)
	r.mirror.save(data, err)
	r.recordCountsLocked()
}

func (r *TleRegistry) recordCountsLocked() {
	if r.metrics != nil {
		r.metrics.SetTLECounts(r.tles.Len(), len(r.visibleLocked()))
	}
}

// encodeTLEs writes the mapping as a JSON object whose member order follows
// insertion order; encoding/json would sort map keys.
func encodeTLEs(m *orderedMap[model.TLERecord]) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	var encErr error
	m.Each(func(key string, rec model.TLERecord) {
		if encErr != nil {
			return
		}
		k, err := json.Marshal(key)
		if err != nil {
			encErr = fmt.Errorf("encode key %q: %w", key, err)
			return
		}
		v, err := json.Marshal(rec)
		if err != nil {
			encErr = fmt.Errorf("encode record %q: %w", key, err)
			return
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		i++
	})
	if encErr != nil {
		return nil, encErr
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// storedTLE distinguishes a missing visibleOnMap from an explicit false.
type storedTLE struct {
	Name         string `json:"name"`
	TLE1         string `json:"tle1"`
	TLE2         string `json:"tle2"`
	VisibleOnMap *bool  `json:"visibleOnMap"`
}

func (r *TleRegistry) hydrate() {
	raw, ok := r.mirror.load()
	if !ok {
		return
	}

	loaded, err := decodeTLEs(raw)
	if err != nil {
		r.mirror.discard(err)
		return
	}
	for _, rec := range loaded {
		// Keys that collide after re-normalization keep the first record.
		if !r.tles.Has(rec.key) {
			r.tles.Set(rec.key, rec.record)
		}
	}
	r.log.Info(context.Background(), "TLE data loaded from storage", logging.Int("count", r.tles.Len()))
}

type keyedTLE struct {
	key    string
	record model.TLERecord
}

// decodeTLEs reads the stored object member by member so document order
// becomes iteration order. Keys are re-normalized; a blank key falls back to
// the record's own name.
func decodeTLEs(raw string) ([]keyedTLE, error) {
	dec := json.NewDecoder(strings.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var out []keyedTLE
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		rawKey, _ := tok.(string)

		var s storedTLE
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode record %q: %w", rawKey, err)
		}

		key := model.NormalizeKey(rawKey)
		if key == "" {
			key = model.NormalizeKey(s.Name)
		}
		if key == "" {
			continue
		}
		visible := true
		if s.VisibleOnMap != nil {
			visible = *s.VisibleOnMap
		}
		out = append(out, keyedTLE{key: key, record: model.TLERecord{
			Name:         s.Name,
			TLE1:         s.TLE1,
			TLE2:         s.TLE2,
			VisibleOnMap: visible,
		}})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}
