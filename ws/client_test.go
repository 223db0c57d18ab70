package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hybridz/smsgate/config"
)

// newEventServer starts a WebSocket test server. handler receives each
// upgraded connection along with its 1-based dial count.
func newEventServer(t *testing.T, handler func(conn *websocket.Conn, dial int)) (string, *int32) {
	t.Helper()

	var dials int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&dials, 1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn, int(n))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &dials
}

func testConfig(url string) *config.WebSocketConfig {
	return config.NewWebSocket(url).
		WithReconnectInterval(10 * time.Millisecond).
		WithPingInterval(50 * time.Millisecond).
		WithPongTimeout(time.Second)
}

func incomingJSON(id int) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"incoming","data":{"message_id":%d,"phone_number":"+15551234567","message_content":"msg %d"}}`,
		id, id))
}

// drain keeps the server side reading so close handshakes are answered.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDispatchOrder(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		for i := 1; i <= 3; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, incomingJSON(i)); err != nil {
				return
			}
		}
		drain(conn)
	})

	client := New(testConfig(url))

	var got []int64
	done := make(chan struct{})
	client.OnEvent(func(ev Event) {
		if ev.Type != EventIncoming {
			return
		}
		msg, err := ev.Message()
		if err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		got = append(got, msg.MessageID)
		if len(got) == 3 {
			close(done)
		}
	})

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	client.Stop()

	for i, id := range got {
		if id != int64(i+1) {
			t.Fatalf("events delivered out of order: %v", got)
		}
	}
	if client.State() != StateClosed {
		t.Fatalf("state = %v, want closed", client.State())
	}
	if err := client.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil after graceful stop", err)
	}
}

func TestStartTwiceFails(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		drain(conn)
	})

	client := New(testConfig(url))
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Stop()

	if err := client.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start: err = %v, want ErrAlreadyRunning", err)
	}
	if err := client.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Run while started: err = %v, want ErrAlreadyRunning", err)
	}

	// The existing connection is untouched by the failed starts.
	waitFor(t, client.Connected, "client never connected")
}

func TestRunAfterClosedFails(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		drain(conn)
	})

	client := New(testConfig(url))
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	client.Stop()

	if err := client.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Run after close: err = %v, want ErrAlreadyRunning", err)
	}
}

func TestStopIdempotent(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		drain(conn)
	})

	client := New(testConfig(url))

	// Stop before any start is a no-op.
	client.Stop()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, client.Connected, "client never connected")

	client.Stop()
	client.Stop()

	if client.State() != StateClosed {
		t.Fatalf("state = %v, want closed", client.State())
	}
}

func TestReconnectAfterServerClose(t *testing.T) {
	url, dials := newEventServer(t, func(conn *websocket.Conn, dial int) {
		conn.WriteMessage(websocket.TextMessage, incomingJSON(dial))
		if dial == 1 {
			conn.Close()
			return
		}
		drain(conn)
	})

	client := New(testConfig(url))

	events := make(chan int64, 8)
	client.OnEvent(func(ev Event) {
		if ev.Type != EventIncoming {
			return
		}
		if msg, err := ev.Message(); err == nil {
			events <- msg.MessageID
		}
	})

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Stop()

	var got []int64
	for len(got) < 2 {
		select {
		case id := <-events:
			got = append(got, id)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out; got %v", got)
		}
	}

	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("events = %v, want [1 2]", got)
	}
	if n := atomic.LoadInt32(dials); n != 2 {
		t.Fatalf("dials = %d, want 2", n)
	}

	// The retry counter resets on a successful open.
	waitFor(t, client.Connected, "client never reconnected")
	client.mu.Lock()
	retries := client.retries
	client.mu.Unlock()
	if retries != 0 {
		t.Fatalf("retries = %d, want 0 after successful reconnect", retries)
	}
}

func TestNoReconnectWhenDisabled(t *testing.T) {
	url, dials := newEventServer(t, func(conn *websocket.Conn, _ int) {
		conn.Close()
	})

	cfg := testConfig(url).WithAutoReconnect(false)
	client := New(cfg)

	err := client.Run(context.Background())
	if err == nil {
		t.Fatal("Run returned nil, want read error")
	}
	if client.State() != StateClosed {
		t.Fatalf("state = %v, want closed", client.State())
	}
	if n := atomic.LoadInt32(dials); n != 1 {
		t.Fatalf("dials = %d, want 1", n)
	}
}

func TestRetriesIncrementUpToMax(t *testing.T) {
	// A server that is already gone: every dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	cfg := testConfig(url).WithMaxReconnectAttempts(3)
	client := New(cfg)

	err := client.Run(context.Background())
	if !errors.Is(err, ErrMaxAttempts) {
		t.Fatalf("err = %v, want ErrMaxAttempts", err)
	}

	client.mu.Lock()
	retries := client.retries
	client.mu.Unlock()
	if retries != 3 {
		t.Fatalf("retries = %d, want 3", retries)
	}
	if client.State() != StateClosed {
		t.Fatalf("state = %v, want closed", client.State())
	}
}

func TestUnauthorizedIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	// Auto-reconnect must not retry a rejected token.
	client := New(testConfig(url).WithAuth("bad-token"))

	err := client.Run(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestStopInterruptsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	// An hour-long backoff: Stop must not wait it out.
	cfg := testConfig(url).WithReconnectInterval(time.Hour)
	client := New(cfg)

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool {
		s := client.State()
		return s == StateReconnecting || s == StateConnecting
	}, "client never entered reconnect cycle")

	stopped := make(chan struct{})
	go func() {
		client.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not interrupt the backoff wait")
	}
	if err := client.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil after graceful stop", err)
	}
}

func TestContextCancelStopsRun(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		drain(conn)
	})

	client := New(testConfig(url))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	waitFor(t, client.Connected, "client never connected")
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run: err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestEventsFilterQuery(t *testing.T) {
	gotQuery := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery <- r.URL.Query().Get("events")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		drain(conn)
	}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	client := New(testConfig(url).WithEvents("incoming", "delivery"))
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Stop()

	select {
	case q := <-gotQuery:
		if q != "incoming,delivery" {
			t.Fatalf("events query = %q, want %q", q, "incoming,delivery")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never dialed")
	}
}

func TestConnectionUpdateEvents(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		drain(conn)
	})

	client := New(testConfig(url))

	updates := make(chan ConnectionUpdate, 8)
	client.OnEvent(func(ev Event) {
		if ev.Type != EventConnectionUpdate {
			return
		}
		if cu, err := ev.Connection(); err == nil {
			updates <- *cu
		}
	})

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case cu := <-updates:
		if !cu.Connected {
			t.Fatalf("first update = %+v, want connected", cu)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no connect update")
	}

	client.Stop()

	select {
	case cu := <-updates:
		if cu.Connected || cu.Reconnect {
			t.Fatalf("final update = %+v, want disconnected without reconnect", cu)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no disconnect update")
	}
}

func TestMalformedEventsAreSkipped(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		conn.WriteMessage(websocket.TextMessage, incomingJSON(7))
		drain(conn)
	})

	client := New(testConfig(url))

	got := make(chan int64, 1)
	client.OnEvent(func(ev Event) {
		if ev.Type != EventIncoming {
			return
		}
		if msg, err := ev.Message(); err == nil {
			got <- msg.MessageID
		}
	})

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Stop()

	select {
	case id := <-got:
		if id != 7 {
			t.Fatalf("message_id = %d, want 7", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("valid event after malformed one was not delivered")
	}
}

func TestNoHandlerDropsEvents(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		conn.WriteMessage(websocket.TextMessage, incomingJSON(1))
		drain(conn)
	})

	// No handler registered: events are dropped, nothing blocks.
	client := New(testConfig(url))
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, client.Connected, "client never connected")
	client.Stop()
}

func TestDoneChannel(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		drain(conn)
	})

	client := New(testConfig(url))

	// Never started: already closed.
	select {
	case <-client.Done():
	default:
		t.Fatal("Done() blocked for a never-started client")
	}

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-client.Done():
		t.Fatal("Done() closed while running")
	default:
	}

	client.Stop()
	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after stop")
	}
}

func TestEventDecodeVariants(t *testing.T) {
	raw := `{"type":"delivery","data":{"message_id":9,"report":{"phone_number":"+1555","reference_id":3,"status":0}}}`
	ev, err := decodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	if ev.Type != EventDelivery {
		t.Fatalf("type = %q, want delivery", ev.Type)
	}
	du, err := ev.Delivery()
	if err != nil {
		t.Fatalf("Delivery: %v", err)
	}
	if du.MessageID != 9 || du.Report.ReferenceID != 3 {
		t.Fatalf("delivery = %+v", du)
	}

	// Unknown variants pass through with their payload intact.
	ev, err = decodeEvent([]byte(`{"type":"something_new","data":{"a":1}}`))
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	if string(ev.Data) != `{"a":1}` {
		t.Fatalf("data = %s", ev.Data)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
}

func TestReconnectForcesNewConnection(t *testing.T) {
	url, dials := newEventServer(t, func(conn *websocket.Conn, _ int) {
		drain(conn)
	})

	// AutoReconnect off: only the forced cycle may redial.
	cfg := testConfig(url).WithAutoReconnect(false)
	client := New(cfg)

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Stop()
	waitFor(t, client.Connected, "client never connected")

	if err := client.Reconnect(); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}

	waitFor(t, func() bool {
		return atomic.LoadInt32(dials) == 2 && client.Connected()
	}, "client never re-established the connection")

	client.mu.Lock()
	retries := client.retries
	client.mu.Unlock()
	if retries != 0 {
		t.Fatalf("retries = %d, want 0 (forced cycle is not a failure)", retries)
	}
}

func TestReconnectWhenNotConnected(t *testing.T) {
	url, _ := newEventServer(t, func(conn *websocket.Conn, _ int) {
		drain(conn)
	})

	client := New(testConfig(url))
	if err := client.Reconnect(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Reconnect before start: err = %v, want ErrNotConnected", err)
	}

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, client.Connected, "client never connected")
	client.Stop()

	if err := client.Reconnect(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Reconnect after stop: err = %v, want ErrNotConnected", err)
	}
}
