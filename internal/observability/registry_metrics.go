package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/sattrack/events"
)

// RegistryCollector exposes registry sizes, storage failures, event traffic
// and live SSE clients. It satisfies registry.MetricsRecorder.
type RegistryCollector struct {
	gatherer prometheus.Gatherer

	Observers       prometheus.Gauge
	TLEs            prometheus.Gauge
	VisibleTLEs     prometheus.Gauge
	StorageFailures *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	StreamClients   prometheus.Gauge
}

// NewRegistryCollector registers registry metrics against the provided registerer.
func NewRegistryCollector(reg prometheus.Registerer) (*RegistryCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	observers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sattrack_observers",
		Help: "Current number of observers in the observer registry.",
	}), "sattrack_observers")
	if err != nil {
		return nil, err
	}
	tles, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sattrack_tles",
		Help: "Current number of TLE entries, hidden or not.",
	}), "sattrack_tles")
	if err != nil {
		return nil, err
	}
	visible, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sattrack_tles_visible",
		Help: "Current number of TLE entries shown on the map.",
	}), "sattrack_tles_visible")
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sattrack_storage_failures_total",
		Help: "Storage faults absorbed by the registries, labeled by registry and operation.",
	}, []string{"registry", "op"})
	failures, err = registerCounterVec(reg, failures, "sattrack_storage_failures_total")
	if err != nil {
		return nil, err
	}

	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sattrack_events_published_total",
		Help: "Events published on the event channel, labeled by event name.",
	}, []string{"event"})
	published, err = registerCounterVec(reg, published, "sattrack_events_published_total")
	if err != nil {
		return nil, err
	}

	streams, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sattrack_event_stream_clients",
		Help: "Currently connected event stream clients.",
	}), "sattrack_event_stream_clients")
	if err != nil {
		return nil, err
	}

	return &RegistryCollector{
		gatherer:        gatherer,
		Observers:       observers,
		TLEs:            tles,
		VisibleTLEs:     visible,
		StorageFailures: failures,
		EventsPublished: published,
		StreamClients:   streams,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *RegistryCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// SetObserverCount updates the observer gauge.
func (c *RegistryCollector) SetObserverCount(n int) {
	if c == nil || c.Observers == nil {
		return
	}
	c.Observers.Set(float64(n))
}

// SetTLECounts updates the TLE gauges.
func (c *RegistryCollector) SetTLECounts(total, visible int) {
	if c == nil {
		return
	}
	if c.TLEs != nil {
		c.TLEs.Set(float64(total))
	}
	if c.VisibleTLEs != nil {
		c.VisibleTLEs.Set(float64(visible))
	}
}

// StorageFailure counts one absorbed storage fault.
func (c *RegistryCollector) StorageFailure(registry, op string) {
	if c == nil || c.StorageFailures == nil {
		return
	}
	c.StorageFailures.WithLabelValues(registry, op).Inc()
}

// StreamOpened and StreamClosed track connected event stream clients.
func (c *RegistryCollector) StreamOpened() {
	if c == nil || c.StreamClients == nil {
		return
	}
	c.StreamClients.Inc()
}

func (c *RegistryCollector) StreamClosed() {
	if c == nil || c.StreamClients == nil {
		return
	}
	c.StreamClients.Dec()
}

// CountEvents subscribes to every known event name on ch and counts each
// publication. The returned func unsubscribes.
func (c *RegistryCollector) CountEvents(ch *events.Channel) func() {
	if c == nil || ch == nil || c.EventsPublished == nil {
		return func() {}
	}
	return ch.SubscribeMany(func(e events.Event) {
		c.EventsPublished.WithLabelValues(string(e.Name)).Inc()
	}, events.AllNames()...)
}
