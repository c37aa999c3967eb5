package realtime

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Transport names one way of reaching the backend's real-time endpoint,
// tried in the order configured.
type Transport string

const (
	TransportWebsocket Transport = "websocket"
	TransportPolling   Transport = "polling"
)

const (
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = time.Second
)

// Config sets up a channel for exactly one room.
type Config struct {
	// BaseURL is the backend's http(s) base; the channel derives the
	// socket endpoint from it.
	BaseURL string
	Token   string
	RoomID  string

	// Transports defaults to websocket then polling.
	Transports []Transport

	// ReconnectAttempts and ReconnectDelay bound recovery from network
	// failures. A server-initiated close is redialed once outside this
	// budget, matching the backing library's policy.
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	Logger zerolog.Logger
}

type conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// Channel is the real-time connection behind one mounted chat view:
// connect, emit join_room, stream new_message events, and on teardown
// emit leave_room before closing. Events() yields the typed stream and
// is closed when the channel will produce nothing further, so a
// subscriber can range until done.
type Channel struct {
	cfg    Config
	events chan Event
	state  atomic.Int32

	mu   sync.Mutex
	conn conn

	done      chan struct{}
	closeOnce sync.Once
}

func New(cfg Config) *Channel {
	if len(cfg.Transports) == 0 {
		cfg.Transports = []Transport{TransportWebsocket, TransportPolling}
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = defaultReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	return &Channel{
		cfg:    cfg,
		events: make(chan Event, 32),
		done:   make(chan struct{}),
	}
}

// Events returns the stream the chat view subscribes to.
func (ch *Channel) Events() <-chan Event {
	return ch.events
}

func (ch *Channel) State() State {
	return State(ch.state.Load())
}

// Start begins connecting in the background. Call once.
func (ch *Channel) Start() {
	go ch.run()
}

// Close emits the leave_room intent and tears the connection down. It
// is safe to call from any teardown path, repeatedly, and regardless of
// whether the connection ever came up.
func (ch *Channel) Close() error {
	ch.closeOnce.Do(func() {
		ch.mu.Lock()
		if ch.conn != nil {
			if err := ch.conn.WriteJSON(frame{Type: frameLeaveRoom, RoomID: ch.cfg.RoomID}); err != nil {
				ch.cfg.Logger.Debug().Err(err).Msg("leave_room write failed")
			}
			_ = ch.conn.Close()
		}
		ch.mu.Unlock()
		close(ch.done)
	})
	return nil
}

func (ch *Channel) run() {
	defer close(ch.events)
	attempts := 0
	for {
		if ch.isDone() {
			return
		}
		ch.setState(StateConnecting)
		c, err := ch.dial()
		if err != nil {
			ch.setState(StateError)
			ch.cfg.Logger.Warn().Err(err).Str("room", ch.cfg.RoomID).Msg("realtime connect failed")
			ch.emit(Event{Kind: KindError, Err: err})
			attempts++
			if attempts >= ch.cfg.ReconnectAttempts {
				ch.setState(StateDisconnected)
				ch.emit(Event{Kind: KindDisconnect, Err: err})
				return
			}
			if !ch.sleep() {
				return
			}
			continue
		}

		ch.mu.Lock()
		if ch.isDone() {
			// Closed while dialing. Never joined, so no leave intent.
			ch.mu.Unlock()
			_ = c.Close()
			return
		}
		ch.conn = c
		ch.setState(StateConnected)
		// Join once per connection establishment, not once per mount,
		// so a redial re-joins the room. Written while holding mu: the
		// websocket allows a single writer, and Close() writes
		// leave_room under the same lock from another goroutine.
		joinErr := c.WriteJSON(frame{Type: frameJoinRoom, RoomID: ch.cfg.RoomID})
		ch.mu.Unlock()
		if joinErr != nil {
			ch.cfg.Logger.Warn().Err(joinErr).Msg("join_room write failed")
			ch.releaseConn(c)
			attempts++
			if attempts >= ch.cfg.ReconnectAttempts {
				ch.setState(StateDisconnected)
				ch.emit(Event{Kind: KindDisconnect, Err: joinErr})
				return
			}
			if !ch.sleep() {
				return
			}
			continue
		}
		attempts = 0
		ch.setState(StateJoined)
		ch.emit(Event{Kind: KindJoin})

		serverClosed, readErr := ch.readLoop(c)
		ch.releaseConn(c)
		if ch.isDone() {
			// Close() already sent leave_room on this conn.
			ch.setState(StateDisconnected)
			ch.emit(Event{Kind: KindLeave})
			return
		}
		ch.setState(StateDisconnected)
		ch.emit(Event{Kind: KindDisconnect, Err: readErr})
		if serverClosed {
			// The server hung up on purpose; redial immediately instead
			// of waiting out the retry schedule.
			ch.cfg.Logger.Info().Str("room", ch.cfg.RoomID).Msg("server closed realtime connection, redialing")
			continue
		}
		attempts++
		if attempts >= ch.cfg.ReconnectAttempts {
			return
		}
		if !ch.sleep() {
			return
		}
	}
}

func (ch *Channel) readLoop(c conn) (serverClosed bool, err error) {
	for {
		var f frame
		if err := c.ReadJSON(&f); err != nil {
			return isServerClose(err), err
		}
		switch f.Type {
		case frameNewMessage:
			if f.Message == nil {
				ch.cfg.Logger.Warn().Msg("new_message frame without payload")
				continue
			}
			if err := f.Message.Validate(); err != nil {
				ch.cfg.Logger.Warn().Err(err).Msg("dropping malformed message")
				continue
			}
			ch.emit(Event{Kind: KindMessage, Message: f.Message})
		default:
			ch.cfg.Logger.Debug().Str("type", f.Type).Msg("ignoring frame")
		}
	}
}

// releaseConn closes the conn and clears the channel's reference to
// it, so a dead conn never outlives its read loop.
func (ch *Channel) releaseConn(c conn) {
	ch.mu.Lock()
	if ch.conn == c {
		ch.conn = nil
	}
	ch.mu.Unlock()
	_ = c.Close()
}

func (ch *Channel) dial() (conn, error) {
	var lastErr error
	for _, t := range ch.cfg.Transports {
		var c conn
		var err error
		switch t {
		case TransportWebsocket:
			c, err = dialWebsocket(ch.cfg.BaseURL, ch.cfg.Token)
		case TransportPolling:
			c, err = dialPolling(ch.cfg.BaseURL, ch.cfg.Token, ch.cfg.RoomID)
		default:
			err = fmt.Errorf("unknown transport %q", t)
		}
		if err == nil {
			ch.cfg.Logger.Debug().Str("transport", string(t)).Msg("realtime transport up")
			return c, nil
		}
		lastErr = err
		ch.cfg.Logger.Debug().Err(err).Str("transport", string(t)).Msg("transport failed, trying next")
	}
	if lastErr == nil {
		lastErr = errors.New("no realtime transports configured")
	}
	return nil, lastErr
}

func (ch *Channel) emit(ev Event) {
	select {
	case ch.events <- ev:
	case <-ch.done:
	}
}

func (ch *Channel) sleep() bool {
	select {
	case <-time.After(ch.cfg.ReconnectDelay):
		return true
	case <-ch.done:
		return false
	}
}

func (ch *Channel) isDone() bool {
	select {
	case <-ch.done:
		return true
	default:
		return false
	}
}

func (ch *Channel) setState(s State) {
	ch.state.Store(int32(s))
}

func dialWebsocket(base, token string) (conn, error) {
	endpoint, err := socketURL(base)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	c, _, err := websocket.DefaultDialer.Dial(endpoint, header)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// socketURL turns the http(s) base into the ws(s) socket endpoint on
// the same host.
func socketURL(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = "/socket"
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

func isServerClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseServiceRestart,
	)
}
