package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	pollWait        = 25 * time.Second
	pollHTTPTimeout = 35 * time.Second
)

// pollConn is the fallback transport: long-polls GET /socket/poll for
// inbound frames and POSTs intents to /socket/emit. Slower than the
// websocket but it crosses proxies that strip upgrades.
type pollConn struct {
	base   string
	token  string
	roomID string
	httpc  *http.Client

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	cursor string
	buf    []frame
}

func dialPolling(base, token, roomID string) (conn, error) {
	ctx, cancel := context.WithCancel(context.Background())
	pc := &pollConn{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		roomID: roomID,
		httpc:  &http.Client{Timeout: pollHTTPTimeout},
		ctx:    ctx,
		cancel: cancel,
	}
	// Handshake with a zero-wait poll so a dead endpoint fails the dial
	// instead of the first read.
	if err := pc.poll(0); err != nil {
		cancel()
		return nil, err
	}
	return pc, nil
}

func (pc *pollConn) ReadJSON(v interface{}) error {
	out, ok := v.(*frame)
	if !ok {
		return fmt.Errorf("pollConn: unsupported read target %T", v)
	}
	for {
		if len(pc.buf) > 0 {
			*out = pc.buf[0]
			pc.buf = pc.buf[1:]
			return nil
		}
		if err := pc.poll(pollWait); err != nil {
			return err
		}
	}
}

func (pc *pollConn) WriteJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(pc.ctx, http.MethodPost, pc.base+"/socket/emit", strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	pc.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := pc.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("poll emit returned %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (pc *pollConn) Close() error {
	pc.closeOnce.Do(pc.cancel)
	return nil
}

func (pc *pollConn) poll(wait time.Duration) error {
	query := url.Values{"room_id": {pc.roomID}}
	if pc.cursor != "" {
		query.Set("after", pc.cursor)
	}
	if wait > 0 {
		query.Set("wait", strconv.Itoa(int(wait.Seconds())))
	}
	endpoint := pc.base + "/socket/poll?" + query.Encode()
	req, err := http.NewRequestWithContext(pc.ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	pc.setHeaders(req)
	resp, err := pc.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("poll returned %d", resp.StatusCode)
	}
	var frames []frame
	if err := json.NewDecoder(resp.Body).Decode(&frames); err != nil {
		return fmt.Errorf("decode poll response: %w", err)
	}
	for _, f := range frames {
		if f.Message != nil {
			pc.cursor = f.Message.ID
		}
	}
	pc.buf = append(pc.buf, frames...)
	return nil
}

func (pc *pollConn) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if pc.token != "" {
		req.Header.Set("Authorization", "Bearer "+pc.token)
	}
}
