package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"parley/internal/chat"
)

var testUpgrader = websocket.Upgrader{}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		Token:             "tok-123",
		RoomID:            "room-1",
		Transports:        []Transport{TransportWebsocket},
		ReconnectAttempts: 3,
		ReconnectDelay:    20 * time.Millisecond,
		Logger:            zerolog.Nop(),
	}
}

func waitEvent(t *testing.T, ch *Channel, kind EventKind) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				t.Fatalf("event stream closed while waiting for %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func recvFrame(t *testing.T, frames <-chan frame) frame {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for a frame from the client")
		return frame{}
	}
}

func TestJoinMessageLeave(t *testing.T) {
	frames := make(chan frame, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-123" {
			t.Errorf("missing bearer token on socket dial, got %q", auth)
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var join frame
		if err := conn.ReadJSON(&join); err != nil {
			t.Errorf("read join: %v", err)
			return
		}
		frames <- join

		msg := chat.Message{
			ID:        "m-live",
			Content:   "hello",
			CreatedAt: time.Now().UTC(),
			UserID:    "u2",
			Author:    chat.Author{Username: "bob"},
		}
		if err := conn.WriteJSON(frame{Type: frameNewMessage, Message: &msg}); err != nil {
			t.Errorf("write new_message: %v", err)
			return
		}

		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			frames <- f
		}
	}))
	defer server.Close()

	ch := New(testConfig(server.URL))
	ch.Start()

	waitEvent(t, ch, KindJoin)
	join := recvFrame(t, frames)
	if join.Type != frameJoinRoom || join.RoomID != "room-1" {
		t.Fatalf("expected join_room for room-1, got %+v", join)
	}

	ev := waitEvent(t, ch, KindMessage)
	if ev.Message == nil || ev.Message.ID != "m-live" {
		t.Fatalf("unexpected message event: %+v", ev)
	}

	_ = ch.Close()
	leave := recvFrame(t, frames)
	if leave.Type != frameLeaveRoom || leave.RoomID != "room-1" {
		t.Fatalf("expected leave_room before close, got %+v", leave)
	}

	// The stream drains to a close after teardown.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-ch.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("event stream never closed after Close")
		}
	}
}

func TestServerDisconnectRedialsOnce(t *testing.T) {
	var mu sync.Mutex
	connCount := 0
	joined := make(chan int, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		mu.Lock()
		connCount++
		n := connCount
		mu.Unlock()

		var join frame
		if err := conn.ReadJSON(&join); err != nil {
			t.Errorf("read join on conn %d: %v", n, err)
			return
		}
		joined <- n

		if n == 1 {
			// Server hangs up on purpose.
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"), deadline)
			return
		}
		// Keep the replacement connection up until the client leaves.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ch := New(testConfig(server.URL))
	ch.Start()

	select {
	case n := <-joined:
		if n != 1 {
			t.Fatalf("expected first join, got conn %d", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("first join never arrived")
	}

	// The client re-initiates exactly one connection and re-joins.
	select {
	case n := <-joined:
		if n != 2 {
			t.Fatalf("expected rejoin on conn 2, got %d", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no client-driven reconnect after server close")
	}

	_ = ch.Close()

	// A client-initiated close must not trigger another dial.
	select {
	case n := <-joined:
		t.Fatalf("unexpected reconnect (conn %d) after client close", n)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestBoundedReconnectOnDeadServer(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	ch := New(cfg)
	ch.Start()

	sawError := false
	sawDisconnect := false
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				if !sawError || !sawDisconnect {
					t.Fatalf("stream closed without error/disconnect events (error=%v disconnect=%v)", sawError, sawDisconnect)
				}
				if got := ch.State(); got != StateDisconnected {
					t.Fatalf("expected disconnected state, got %s", got)
				}
				return
			}
			switch ev.Kind {
			case KindError:
				sawError = true
			case KindDisconnect:
				sawDisconnect = true
			}
		case <-deadline:
			t.Fatalf("retry budget never exhausted")
		}
	}
}

func TestCloseBeforeConnectIsSafe(t *testing.T) {
	ch := New(testConfig("http://127.0.0.1:1"))
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Closing twice is fine too.
	if err := ch.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// Sweeps Close across the dial/join window so the race detector can
// catch any unserialized write on the shared conn.
func TestCloseDuringConnectWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	for i := 0; i < 200; i++ {
		ch := New(testConfig(server.URL))
		ch.Start()
		if i%5 != 0 {
			time.Sleep(time.Duration(i%9) * 50 * time.Microsecond)
		}
		_ = ch.Close()
		deadline := time.After(3 * time.Second)
	drain:
		for {
			select {
			case _, ok := <-ch.Events():
				if !ok {
					break drain
				}
			case <-deadline:
				t.Fatalf("iteration %d: event stream never closed", i)
			}
		}
	}
}

type recordingConn struct {
	closed int
}

func (c *recordingConn) ReadJSON(v interface{}) error  { return errors.New("conn is down") }
func (c *recordingConn) WriteJSON(v interface{}) error { return nil }
func (c *recordingConn) Close() error {
	c.closed++
	return nil
}

func TestReleaseConnClosesAndClears(t *testing.T) {
	ch := New(testConfig("http://127.0.0.1:1"))
	c := &recordingConn{}
	ch.mu.Lock()
	ch.conn = c
	ch.mu.Unlock()

	ch.releaseConn(c)
	if c.closed != 1 {
		t.Fatalf("conn closed %d times, want 1", c.closed)
	}
	ch.mu.Lock()
	held := ch.conn
	ch.mu.Unlock()
	if held != nil {
		t.Fatalf("dead conn still referenced after release")
	}

	// A conn that was already replaced must not clear the current one.
	replacement := &recordingConn{}
	ch.mu.Lock()
	ch.conn = replacement
	ch.mu.Unlock()
	ch.releaseConn(c)
	ch.mu.Lock()
	held = ch.conn
	ch.mu.Unlock()
	if held != conn(replacement) {
		t.Fatalf("release of a stale conn clobbered the live one")
	}
}

func TestPollingFallbackWhenWebsocketFails(t *testing.T) {
	var mu sync.Mutex
	var sequence []string
	emitted := make(chan frame, 8)
	polls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/socket", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		sequence = append(sequence, "websocket")
		mu.Unlock()
		http.Error(w, "no upgrades here", http.StatusBadRequest)
	})
	mux.HandleFunc("/socket/poll", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-123" {
			t.Errorf("missing bearer token on poll, got %q", auth)
		}
		if got := r.URL.Query().Get("room_id"); got != "room-1" {
			t.Errorf("poll for wrong room %q", got)
		}
		mu.Lock()
		sequence = append(sequence, "poll")
		polls++
		n := polls
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if n == 2 {
			msg := chat.Message{
				ID:        "m-poll",
				Content:   "over polling",
				CreatedAt: time.Now().UTC(),
				UserID:    "u2",
			}
			payload, _ := json.Marshal([]frame{{Type: frameNewMessage, Message: &msg}})
			_, _ = w.Write(payload)
			return
		}
		if n > 2 {
			// Nothing new; pace the long-poll loop.
			time.Sleep(50 * time.Millisecond)
		}
		_, _ = w.Write([]byte("[]"))
	})
	mux.HandleFunc("/socket/emit", func(w http.ResponseWriter, r *http.Request) {
		var f frame
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			t.Errorf("decode emit: %v", err)
			http.Error(w, "bad frame", http.StatusBadRequest)
			return
		}
		emitted <- f
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Transports = []Transport{TransportWebsocket, TransportPolling}
	ch := New(cfg)
	ch.Start()

	waitEvent(t, ch, KindJoin)
	join := recvFrame(t, emitted)
	if join.Type != frameJoinRoom || join.RoomID != "room-1" {
		t.Fatalf("expected join_room over the emit endpoint, got %+v", join)
	}

	ev := waitEvent(t, ch, KindMessage)
	if ev.Message == nil || ev.Message.ID != "m-poll" {
		t.Fatalf("unexpected message over polling: %+v", ev)
	}

	mu.Lock()
	order := append([]string(nil), sequence...)
	mu.Unlock()
	if len(order) < 2 || order[0] != "websocket" || order[1] != "poll" {
		t.Fatalf("websocket must be attempted before polling, got %v", order)
	}

	_ = ch.Close()
	leave := recvFrame(t, emitted)
	if leave.Type != frameLeaveRoom || leave.RoomID != "room-1" {
		t.Fatalf("expected leave_room over the emit endpoint, got %+v", leave)
	}
}

func TestSocketURL(t *testing.T) {
	got, err := socketURL("https://chat.example.com")
	if err != nil {
		t.Fatalf("socketURL: %v", err)
	}
	if got != "wss://chat.example.com/socket" {
		t.Fatalf("unexpected socket url %q", got)
	}
	if _, err := socketURL("ftp://chat.example.com"); err == nil {
		t.Fatalf("expected error for non-http scheme")
	}
}
