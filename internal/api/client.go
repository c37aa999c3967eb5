package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"parley/internal/chat"
)

var httpTimeout = 10 * time.Second

// ErrUnreachable means the request never completed: no response to
// interpret, so callers show a generic connectivity message.
var ErrUnreachable = errors.New("unable to connect to the server")

// ErrUnauthorized is returned on a 401. The app only acts on it at the
// top level, by dropping back to the login screen.
var ErrUnauthorized = errors.New("unauthorized")

// RequestError is a non-success HTTP status, carrying the error message
// extracted from the response body or a per-action fallback.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// Is marks 401 responses as ErrUnauthorized so the app can detect an
// expired token with errors.Is while the displayed text stays the
// server's own message.
func (e *RequestError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Client issues authenticated requests against the backend. It builds
// absolute URLs from a configured base and attaches the bearer token to
// every call once SetToken has been used. It adds no retry or timeout
// policy beyond the underlying http.Client.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New creates a client for the given base URL, with any trailing slash
// trimmed so path joins stay clean.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: httpTimeout},
	}
}

// SetToken installs the bearer token used on subsequent requests.
// An empty token clears it.
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL returns the configured backend base.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type credentials struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	Token string    `json:"token"`
	User  chat.User `json:"user"`
}

// Login exchanges credentials for a token and user. It does not install
// the token; the caller decides when the session becomes current.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, pathLogin, credentials{Email: email, Password: password}, &out, "login failed")
	if err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("decode auth response: missing token")
	}
	if err := out.User.Validate(); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	return &out, nil
}

// Register creates an account and returns the same payload as Login.
func (c *Client) Register(ctx context.Context, email, username, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, pathRegister, credentials{Email: email, Username: username, Password: password}, &out, "registration failed")
	if err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("decode auth response: missing token")
	}
	if err := out.User.Validate(); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	return &out, nil
}

// ListRooms fetches the user's rooms in server order. The caller
// replaces its whole list; there is no incremental sync.
func (c *Client) ListRooms(ctx context.Context) ([]chat.Room, error) {
	var rooms []chat.Room
	if err := c.do(ctx, http.MethodGet, pathRooms, nil, &rooms, "failed to fetch conversations"); err != nil {
		return nil, err
	}
	for _, r := range rooms {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("decode rooms: %w", err)
		}
	}
	return rooms, nil
}

func (c *Client) CreateRoom(ctx context.Context, name string, isPrivate bool) (*chat.Room, error) {
	payload := struct {
		Name      string `json:"name"`
		IsPrivate bool   `json:"is_private"`
	}{Name: name, IsPrivate: isPrivate}
	var room chat.Room
	if err := c.do(ctx, http.MethodPost, pathRooms, payload, &room, "failed to create conversation"); err != nil {
		return nil, err
	}
	if err := room.Validate(); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}

func (c *Client) GetRoom(ctx context.Context, id string) (*chat.Room, error) {
	var room chat.Room
	if err := c.do(ctx, http.MethodGet, roomPath(id), nil, &room, "failed to fetch conversation"); err != nil {
		return nil, err
	}
	if err := room.Validate(); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}

func (c *Client) RenameRoom(ctx context.Context, id, name string) (*chat.Room, error) {
	payload := struct {
		Name string `json:"name"`
	}{Name: name}
	var room chat.Room
	if err := c.do(ctx, http.MethodPatch, roomPath(id), payload, &room, "failed to rename conversation"); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, roomPath(id), nil, nil, "failed to delete conversation")
}

// ListMessages fetches one history page for a room, newest first as the
// backend serves it. The feed reverses it for display.
func (c *Client) ListMessages(ctx context.Context, roomID string) ([]chat.Message, error) {
	var messages []chat.Message
	if err := c.do(ctx, http.MethodGet, roomMessagesPath(roomID), nil, &messages, "failed to fetch messages"); err != nil {
		return nil, err
	}
	for _, m := range messages {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
	}
	return messages, nil
}

// SendMessage posts a new message. The created message comes back in
// the response but the feed waits for the channel delivery instead.
func (c *Client) SendMessage(ctx context.Context, roomID, content string) (*chat.Message, error) {
	payload := struct {
		Content string `json:"content"`
	}{Content: content}
	var msg chat.Message
	if err := c.do(ctx, http.MethodPost, roomMessagesPath(roomID), payload, &msg, "failed to send message"); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) InviteUser(ctx context.Context, roomID, username string) error {
	payload := struct {
		Username string `json:"username"`
	}{Username: username}
	return c.do(ctx, http.MethodPost, roomInvitePath(roomID), payload, nil, "failed to send invitation")
}

func (c *Client) ListInvites(ctx context.Context) ([]chat.Invite, error) {
	var invites []chat.Invite
	if err := c.do(ctx, http.MethodGet, pathInvites, nil, &invites, "failed to fetch invites"); err != nil {
		return nil, err
	}
	for _, i := range invites {
		if err := i.Validate(); err != nil {
			return nil, fmt.Errorf("decode invites: %w", err)
		}
	}
	return invites, nil
}

func (c *Client) AcceptInvite(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, inviteAcceptPath(id), nil, nil, "failed to accept invite")
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}, fallback string) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body, fallback)}
	}
	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
	}
	return nil
}

// readErrorMessage pulls the server's error string out of a JSON body
// of the form {"error": "..."} and falls back to the per-action message
// when the body is empty or unparseable.
func readErrorMessage(body io.Reader, fallback string) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return fallback
	}
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return fallback
}
