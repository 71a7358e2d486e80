// Package api exposes the observer and TLE registries over HTTP, with a
// Server-Sent Events stream relaying registry events.
package api

import (
	"net/http"
	"time"

	"github.com/signalsfoundry/sattrack/events"
	"github.com/signalsfoundry/sattrack/internal/logging"
	"github.com/signalsfoundry/sattrack/internal/observability"
	"github.com/signalsfoundry/sattrack/registry"
)

const (
	defaultKeepalive    = 30 * time.Second
	defaultStreamBuffer = 64
	maxBodyBytes        = 4 << 20
)

// StreamRecorder is notified as event stream clients come and go.
type StreamRecorder interface {
	StreamOpened()
	StreamClosed()
}

// Server routes HTTP requests onto the registries.
type Server struct {
	observers *registry.ObserverRegistry
	tles      *registry.TleRegistry
	events    *events.Channel

	log          logging.Logger
	httpMetrics  *observability.HTTPCollector
	streams      StreamRecorder
	keepalive    time.Duration
	streamBuffer int
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the base logger; request loggers derive from it.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithHTTPMetrics records per-route request counts and latencies.
func WithHTTPMetrics(c *observability.HTTPCollector) Option {
	return func(s *Server) { s.httpMetrics = c }
}

// WithStreamRecorder reports event stream connections.
func WithStreamRecorder(r StreamRecorder) Option {
	return func(s *Server) { s.streams = r }
}

// WithKeepalive overrides the interval between SSE keepalive comments.
func WithKeepalive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepalive = d
		}
	}
}

// WithStreamBuffer sets how many undelivered events a slow client may queue
// before further events are dropped for it.
func WithStreamBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.streamBuffer = n
		}
	}
}

// NewServer builds a Server. ch is the channel both registries publish on.
func NewServer(observers *registry.ObserverRegistry, tles *registry.TleRegistry, ch *events.Channel, opts ...Option) *Server {
	s := &Server{
		observers:    observers,
		tles:         tles,
		events:       ch,
		log:          logging.Noop(),
		keepalive:    defaultKeepalive,
		streamBuffer: defaultStreamBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /api/observers", s.listObservers)
	s.handle(mux, "POST /api/observers", s.addObserver)
	s.handle(mux, "GET /api/observers/{name...}", s.getObserver)
	s.handle(mux, "DELETE /api/observers/{name...}", s.removeObserver)

	s.handle(mux, "GET /api/tles", s.listTLEs)
	s.handle(mux, "POST /api/tles", s.addTLE)
	s.handle(mux, "POST /api/tles/import", s.importTLEs)
	s.handle(mux, "GET /api/tles/{name...}", s.getTLE)
	s.handle(mux, "POST /api/tles/{name}/toggle", s.toggleTLE)
	s.handle(mux, "DELETE /api/tles/{name...}", s.removeTLE)
	s.handle(mux, "DELETE /api/tles", s.clearTLEs)

	s.handle(mux, "GET /events", s.stream)
	s.handle(mux, "GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return requestID(s.log, mux)
}

// handle registers h under pattern with tracing and metrics labelled by the
// pattern itself, which keeps label cardinality bounded.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	var wrapped http.Handler = traced(pattern, h)
	wrapped = s.httpMetrics.Middleware(pattern, wrapped)
	mux.Handle(pattern, wrapped)
}
