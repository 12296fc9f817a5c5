package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observable"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHub_AddBroadcastRemove(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Add("a")
	b := hub.Add("b")
	if n := hub.ClientCount(); n != 2 {
		t.Fatalf("ClientCount() = %d, want 2", n)
	}

	hub.Broadcast(Event{Type: "ping"})
	ea, eb := recvEvent(t, a), recvEvent(t, b)
	if ea.Type != "ping" || eb.Type != "ping" {
		t.Errorf("events = %v, %v", ea, eb)
	}
	if ea.ID == 0 || ea.ID != eb.ID {
		t.Errorf("event ids = %d, %d, want equal and non-zero", ea.ID, eb.ID)
	}

	hub.Remove("a", a)
	if _, ok := <-a; ok {
		t.Error("removed client channel still open")
	}
	hub.Remove("a", a)
	if n := hub.ClientCount(); n != 1 {
		t.Errorf("ClientCount() = %d, want 1", n)
	}
}

// TestHub_AddReplacesClient verifies re-registering an id closes the old stream,
// and that the old stream's cleanup leaves the new registration connected.
func TestHub_AddReplacesClient(t *testing.T) {
	hub := NewHub(nil)
	old := hub.Add("a")
	fresh := hub.Add("a")
	if _, ok := <-old; ok {
		t.Error("replaced client channel still open")
	}

	hub.Remove("a", old)
	if n := hub.ClientCount(); n != 1 {
		t.Fatalf("ClientCount() = %d, want 1", n)
	}
	hub.Broadcast(Event{Type: "ping"})
	if e := recvEvent(t, fresh); e.Type != "ping" {
		t.Errorf("fresh client event = %+v", e)
	}

	hub.Remove("a", fresh)
	if _, ok := <-fresh; ok {
		t.Error("fresh client channel open after its own Remove")
	}
}

// TestHub_BroadcastNeverBlocks verifies a stalled client does not block writers.
func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	hub.Add("stalled")

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*3; i++ {
			hub.Broadcast(Event{Type: "ping"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a full client")
	}
}

// TestHub_Close verifies Close ends every stream and refuses new clients.
func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Add("a")
	hub.Close()
	hub.Close()

	if _, ok := <-a; ok {
		t.Error("client channel open after Close")
	}
	if _, ok := <-hub.Add("late"); ok {
		t.Error("Add after Close returned an open channel")
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, want 0", n)
	}
}

// TestHub_Follow verifies each cell write becomes a weather event flagged by
// whether it is the placeholder.
func TestHub_Follow(t *testing.T) {
	hub := NewHub(nil)
	cell := observable.NewVariable(models.DefaultWeather())
	cancel := hub.Follow(cell)
	defer cancel()
	ch := hub.Add("a")

	cell.Set(models.Weather{Location: models.Location{Name: "New York"}})
	e := recvEvent(t, ch)
	data, ok := e.Data.(WeatherEvent)
	if e.Type != "weather" || !ok {
		t.Fatalf("event = %+v", e)
	}
	if data.Placeholder || data.Weather.Location.Name != "New York" {
		t.Errorf("data = %+v", data)
	}

	cell.Set(models.DefaultWeather())
	if data := recvEvent(t, ch).Data.(WeatherEvent); !data.Placeholder {
		t.Error("placeholder write not flagged")
	}
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	if err := writeEvent(&buf, Event{ID: 7, Type: "connected", Data: map[string]string{"clientId": "c"}}); err != nil {
		t.Fatalf("writeEvent() error = %v", err)
	}
	want := "id: 7\nevent: connected\ndata: {\"clientId\":\"c\"}\n\n"
	if buf.String() != want {
		t.Errorf("writeEvent() = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	_ = writeEvent(&buf, Event{ID: 8})
	if buf.String() != "id: 8\ndata: {}\n\n" {
		t.Errorf("writeEvent() without type/data = %q", buf.String())
	}
}

type sseEvent struct {
	typ  string
	data string
}

// readEvent reads one event from an event stream, skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) (sseEvent, bool) {
	t.Helper()
	var e sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return e, false
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if e.typ != "" || e.data != "" {
				return e, true
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			e.typ = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			e.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// TestHandler_StreamWeather verifies the connect handshake, the initial snapshot,
// live updates and that closing the hub ends the stream.
func TestHandler_StreamWeather(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	cancel := env.hub.Follow(env.cell)
	defer cancel()
	server := httptest.NewServer(env.router)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/weather/events", nil)
	req.Header.Set("X-Client-Id", "widget-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /weather/events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	reader := bufio.NewReader(resp.Body)

	connected, ok := readEvent(t, reader)
	if !ok || connected.typ != "connected" || !strings.Contains(connected.data, "widget-1") {
		t.Fatalf("first event = %+v", connected)
	}

	snapshot, ok := readEvent(t, reader)
	if !ok || snapshot.typ != "weather" {
		t.Fatalf("second event = %+v", snapshot)
	}
	var we WeatherEvent
	if err := json.Unmarshal([]byte(snapshot.data), &we); err != nil {
		t.Fatalf("Unmarshal snapshot: %v", err)
	}
	if !we.Placeholder {
		t.Error("snapshot of the initial cell not flagged as placeholder")
	}

	env.cell.Set(models.Weather{Location: models.Location{Name: "Boston"}})
	update, ok := readEvent(t, reader)
	if !ok || update.typ != "weather" {
		t.Fatalf("update event = %+v", update)
	}
	if err := json.Unmarshal([]byte(update.data), &we); err != nil {
		t.Fatalf("Unmarshal update: %v", err)
	}
	if we.Placeholder || we.Weather.Location.Name != "Boston" {
		t.Errorf("update = %+v", we.Weather.Location)
	}

	env.hub.Close()
	if e, ok := readEvent(t, reader); ok {
		t.Errorf("stream continued after hub closed: %+v", e)
	}
}

// TestHandler_StreamWeather_Keepalive verifies idle streams receive comments.
func TestHandler_StreamWeather_Keepalive(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.handler.SetKeepalive(10 * time.Millisecond)
	server := httptest.NewServer(env.router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/weather/events")
	if err != nil {
		t.Fatalf("GET /weather/events: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line == ": keepalive\n" {
			return
		}
	}
	t.Error("no keepalive received")
}
