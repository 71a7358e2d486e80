package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/sattrack/events"
	"github.com/signalsfoundry/sattrack/internal/logging"
)

// connectedEvent is the first message on every stream.
const connectedEvent = "connected"

// stream relays every registry event to the client as Server-Sent Events.
// Handlers run on the publisher's goroutine, so each client gets a buffered
// queue; when it is full the event is dropped for that client only.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	log := logging.LoggerFromContext(ctx)
	if log == nil {
		log = s.log
	}

	clientID := r.Header.Get("X-Client-Id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	log = log.With(logging.String("client_id", clientID))

	queue := make(chan events.Event, s.streamBuffer)
	unsubscribe := s.events.SubscribeMany(func(ev events.Event) {
		select {
		case queue <- ev:
		default:
			log.Warn(ctx, "event stream client too slow; dropping event", logging.String("event", string(ev.Name)))
		}
	}, events.AllNames()...)
	defer unsubscribe()

	if s.streams != nil {
		s.streams.StreamOpened()
		defer s.streams.StreamClosed()
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var seq uint64
	send := func(name string, payload any) error {
		seq++
		return writeEvent(w, seq, name, payload)
	}

	if err := send(connectedEvent, map[string]string{"client_id": clientID}); err != nil {
		log.Warn(ctx, "event stream write failed", logging.Err(err))
		return
	}
	flusher.Flush()
	log.Debug(ctx, "event stream client connected")

	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug(ctx, "event stream client disconnected")
			return

		case ev := <-queue:
			if err := send(string(ev.Name), ev.Payload); err != nil {
				log.Warn(ctx, "event stream write failed", logging.Err(err))
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE frame with a JSON data line.
func writeEvent(w io.Writer, id uint64, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, name, data)
	return err
}
