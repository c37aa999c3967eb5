package realtime

import "parley/internal/chat"

// EventKind labels the entries of the channel's event stream.
type EventKind int

const (
	KindJoin EventKind = iota
	KindLeave
	KindMessage
	KindError
	KindDisconnect
)

func (k EventKind) String() string {
	switch k {
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	case KindMessage:
		return "message"
	case KindError:
		return "error"
	case KindDisconnect:
		return "disconnect"
	}
	return "unknown"
}

// Event is one entry of the stream a chat view subscribes to. Message
// is set for KindMessage, Err for KindError and KindDisconnect.
type Event struct {
	Kind    EventKind
	Message *chat.Message
	Err     error
}

// State is the channel lifecycle position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateJoined
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateError:
		return "error"
	}
	return "unknown"
}

// frame is the wire envelope both directions. The client sends
// join_room and leave_room intents; the server pushes new_message.
type frame struct {
	Type    string        `json:"type"`
	RoomID  string        `json:"room_id,omitempty"`
	Message *chat.Message `json:"message,omitempty"`
}

const (
	frameJoinRoom   = "join_room"
	frameLeaveRoom  = "leave_room"
	frameNewMessage = "new_message"
)
