package http

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observability"
	"github.com/kjstillabower/weather-widget/internal/observable"
)

// clientBuffer is the per-client backlog. A client that falls this far behind
// misses events; each weather event carries the full value so the next one
// catches it up.
const clientBuffer = 16

// Event is one server-sent event.
type Event struct {
	ID   int64
	Type string
	Data any
}

// WeatherEvent is the payload of a "weather" event.
type WeatherEvent struct {
	Placeholder bool           `json:"placeholder"`
	Weather     models.Weather `json:"weather"`
}

// Hub fans cell writes out to connected event-stream clients.
type Hub struct {
	logger *zap.Logger
	seq    atomic.Int64

	mu      sync.RWMutex
	clients map[string]chan Event
	closed  bool
}

// NewHub returns an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[string]chan Event),
	}
}

// Add registers a client and returns its event channel. A client already
// registered under id is replaced. After Close the returned channel is closed.
func (h *Hub) Add(id string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, clientBuffer)
	if h.closed {
		close(ch)
		return ch
	}
	if existing, ok := h.clients[id]; ok {
		close(existing)
		observability.EventStreamClients.Dec()
	}
	h.clients[id] = ch
	observability.EventStreamClients.Inc()
	h.logger.Debug("event stream client connected", zap.String("client_id", id), zap.Int("clients", len(h.clients)))
	return ch
}

// Remove unregisters the client registered under id with channel events and
// closes it. A registration that has since been replaced by a later Add for the
// same id is left alone.
func (h *Hub) Remove(id string, events <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[id]; ok && (<-chan Event)(ch) == events {
		close(ch)
		delete(h.clients, id)
		observability.EventStreamClients.Dec()
		h.logger.Debug("event stream client disconnected", zap.String("client_id", id), zap.Int("clients", len(h.clients)))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues e for every client without blocking. Clients with a full
// backlog skip the event.
func (h *Hub) Broadcast(e Event) {
	if e.ID == 0 {
		e.ID = h.NextID()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- e:
		default:
			h.logger.Warn("event stream client backlog full, skipping event", zap.String("client_id", id), zap.String("type", e.Type))
		}
	}
}

// NextID returns the next event id.
func (h *Hub) NextID() int64 {
	return h.seq.Add(1)
}

// Follow broadcasts a weather event for every write to cell.
func (h *Hub) Follow(cell *observable.Variable[models.Weather]) (cancel func()) {
	return cell.Subscribe(func(w models.Weather) {
		h.Broadcast(NewWeatherEvent(w))
	})
}

// Close disconnects every client and refuses new ones. Streams end, which lets
// graceful shutdown drain in-flight requests.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
		observability.EventStreamClients.Dec()
	}
}

// NewWeatherEvent wraps w as a "weather" event.
func NewWeatherEvent(w models.Weather) Event {
	return Event{
		Type: "weather",
		Data: WeatherEvent{Placeholder: models.IsDefault(w), Weather: w},
	}
}

// writeEvent writes e in text/event-stream framing.
func writeEvent(w io.Writer, e Event) error {
	data := []byte("{}")
	if e.Data != nil {
		b, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		data = b
	}
	if _, err := fmt.Fprintf(w, "id: %d\n", e.ID); err != nil {
		return err
	}
	if e.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", e.Type); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
