package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SystemAuthorID is the well-known author id the backend stamps on
// system and AI generated messages. Rendered differently from user
// messages.
var SystemAuthorID = uuid.Nil.String()

// User is the authenticated account as the backend reports it.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LastMessage is the optional preview the backend attaches to rooms.
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Room is a conversation container. The client only ever holds a
// read-through copy; the backend owns the record.
type Room struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	IsPrivate   bool         `json:"is_private"`
	CreatedBy   string       `json:"created_by"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
}

// InviteRoom carries the nested room name on an invite payload.
type InviteRoom struct {
	Name string `json:"name"`
}

// Invite is a pending offer of room membership.
type Invite struct {
	ID              string     `json:"id"`
	RoomID          string     `json:"room_id"`
	InvitedBy       string     `json:"invited_by"`
	InvitedUsername string     `json:"invited_username"`
	Status          string     `json:"status"`
	Room            InviteRoom `json:"rooms"`
}

// Author carries the nested username on a message payload.
type Author struct {
	Username string `json:"username"`
}

// Message is one chat message. CreatedAt is the display ordering key.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
	Author    Author    `json:"users"`
}

// FromSystem reports whether the message carries the system author id.
func (m Message) FromSystem() bool {
	return m.UserID == SystemAuthorID
}

// Validate checks the fields every view relies on. Payloads are
// validated at the REST and channel boundaries so the rest of the app
// only ever sees well-formed values.
func (m Message) Validate() error {
	if m.ID == "" {
		return errors.New("message missing id")
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("message %s missing created_at", m.ID)
	}
	if m.UserID == "" {
		return fmt.Errorf("message %s missing user_id", m.ID)
	}
	return nil
}

func (r Room) Validate() error {
	if r.ID == "" {
		return errors.New("room missing id")
	}
	if r.Name == "" {
		return fmt.Errorf("room %s missing name", r.ID)
	}
	return nil
}

func (i Invite) Validate() error {
	if i.ID == "" {
		return errors.New("invite missing id")
	}
	if i.RoomID == "" {
		return fmt.Errorf("invite %s missing room_id", i.ID)
	}
	return nil
}

func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("user missing id")
	}
	if u.Username == "" {
		return fmt.Errorf("user %s missing username", u.ID)
	}
	return nil
}
