package registry

import (
	"context"

	"github.com/signalsfoundry/sattrack/events"
	"github.com/signalsfoundry/sattrack/internal/logging"
)

// Storage keys holding each registry's serialized mirror.
const (
	ObserversKey = "observers"
	TLEKey       = "tleData"
)

// Storage is the durable key-value collaborator. Get reports ok=false for an
// absent key. Both calls block until the backend has finished.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// MetricsRecorder receives registry sizes and storage faults.
type MetricsRecorder interface {
	SetObserverCount(n int)
	SetTLECounts(total, visible int)
	StorageFailure(registry, op string)
}

type options struct {
	log     logging.Logger
	metrics MetricsRecorder
	events  *events.Channel
}

// Option customises registry construction.
type Option func(*options)

// WithLogger sets the logger used for hydration and storage diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics attaches a recorder for record counts and storage failures.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// WithEvents makes the TLE registry publish change events on ch. The
// observer registry takes its channel as a constructor argument instead.
func WithEvents(ch *events.Channel) Option {
	return func(o *options) { o.events = ch }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.log == nil {
		o.log = logging.Noop()
	}
	return o
}

// mirror is a registry's view of its single storage key. Every failure is
// logged and counted here and never returned to the registry's caller.
type mirror struct {
	store    Storage
	key      string
	registry string
	log      logging.Logger
	metrics  MetricsRecorder
}

func newMirror(store Storage, key, registry string, o options) *mirror {
	return &mirror{
		store:    store,
		key:      key,
		registry: registry,
		log:      o.log.With(logging.String("registry", registry), logging.String("storage_key", key)),
		metrics:  o.metrics,
	}
}

// load returns the stored document, or ok=false when there is nothing usable.
func (m *mirror) load() (string, bool) {
	if m.store == nil {
		return "", false
	}
	raw, ok, err := m.store.Get(m.key)
	if err != nil {
		m.fail("load", err)
		return "", false
	}
	if !ok || raw == "" {
		m.log.Debug(context.Background(), "no stored data found")
		return "", false
	}
	return raw, true
}

func (m *mirror) save(data []byte, encodeErr error) {
	if m.store == nil {
		return
	}
	if encodeErr != nil {
		m.fail("encode", encodeErr)
		return
	}
	if err := m.store.Set(m.key, string(data)); err != nil {
		m.fail("save", err)
		return
	}
	m.log.Debug(context.Background(), "snapshot saved", logging.Int("bytes", len(data)))
}

// discard reports a stored document that could not be decoded.
func (m *mirror) discard(err error) {
	m.fail("decode", err)
}

func (m *mirror) fail(op string, err error) {
	m.log.Error(context.Background(), "storage "+op+" failed", logging.Err(err))
	if m.metrics != nil {
		m.metrics.StorageFailure(m.registry, op)
	}
}
