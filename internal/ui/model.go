package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"parley/internal/api"
	"parley/internal/chat"
	"parley/internal/realtime"
	"parley/internal/session"
)

type viewMode int

const (
	modeLogin viewMode = iota
	modeRegister
	modeRooms
	modeChat
)

type authStage int

const (
	stageEmail authStage = iota
	stageUsername
	stagePassword
)

type modalKind int

const (
	modalNone modalKind = iota
	modalCreate
	modalOptions
	modalInvite
)

type focusZone int

const (
	focusRooms focusZone = iota
	focusInvites
)

// Deps carries everything the model needs injected. Session may be nil
// when no stored login exists; the model then starts on the login view.
type Deps struct {
	API      *api.Client
	Sessions *session.Store
	Session  *session.Session
	BaseURL  string
	Logger   zerolog.Logger
}

// Model holds the whole client UI state: which view is showing, the
// lists backing it, the open room's feed and channel, and the one
// modal that may be layered on top.
type Model struct {
	deps Deps
	log  zerolog.Logger

	mode  viewMode
	input textinput.Model

	loading bool
	errText string
	notice  string

	// auth flow
	stage        authStage
	authEmail    string
	authUsername string

	// rooms view
	rooms        []chat.Room
	invites      []chat.Invite
	cursor       int
	inviteCursor int
	focus        focusZone

	// chat view
	room    *chat.Room
	roomID  string
	feed    *chat.Feed
	channel *realtime.Channel

	// modal dialog
	modal         modalKind
	modalTarget   *chat.Room
	modalPrivate  bool
	confirmDelete bool
	modalLoading  bool
	modalErr      string
}

// NewModel builds the initial UI state. With a stored session the app
// opens straight onto the rooms view; otherwise it starts at login.
func NewModel(deps Deps) *Model {
	input := textinput.New()
	input.CharLimit = 0

	m := &Model{
		deps:  deps,
		log:   deps.Logger,
		input: input,
	}
	if deps.Session != nil {
		m.mode = modeRooms
		m.loading = true
	} else {
		m.enterAuth(modeLogin)
	}
	return m
}

// Init kicks off the first fetches when we resumed a session.
func (m *Model) Init() tea.Cmd {
	if m.mode == modeRooms {
		return tea.Batch(m.fetchRoomsCmd(), m.fetchInvitesCmd())
	}
	return textinput.Blink
}

// enterAuth resets the staged login/register prompt flow.
func (m *Model) enterAuth(mode viewMode) {
	m.mode = mode
	m.stage = stageEmail
	m.authEmail = ""
	m.authUsername = ""
	m.errText = ""
	m.notice = ""
	m.loading = false
	m.input.SetValue("")
	m.input.EchoMode = textinput.EchoNormal
	m.input.Placeholder = "you@example.com"
	m.input.Prompt = "email> "
	m.input.Focus()
}

// selectedRoom returns the room under the cursor, or nil when the list
// is empty.
func (m *Model) selectedRoom() *chat.Room {
	if len(m.rooms) == 0 || m.cursor < 0 || m.cursor >= len(m.rooms) {
		return nil
	}
	return &m.rooms[m.cursor]
}

func (m *Model) selectedInvite() *chat.Invite {
	if len(m.invites) == 0 || m.inviteCursor < 0 || m.inviteCursor >= len(m.invites) {
		return nil
	}
	return &m.invites[m.inviteCursor]
}

// openModal resets the dialog-local state every time a modal opens for
// a new target, then focuses its input.
func (m *Model) openModal(kind modalKind, target *chat.Room) {
	m.modal = kind
	m.modalTarget = target
	m.modalErr = ""
	m.modalLoading = false
	m.confirmDelete = false
	m.input.EchoMode = textinput.EchoNormal
	switch kind {
	case modalCreate:
		m.modalPrivate = true
		m.input.SetValue("")
		m.input.Placeholder = "Conversation name"
		m.input.Prompt = "name> "
	case modalOptions:
		m.input.SetValue(target.Name)
		m.input.Placeholder = "New name"
		m.input.Prompt = "rename> "
	case modalInvite:
		m.input.SetValue("")
		m.input.Placeholder = "Username to invite"
		m.input.Prompt = "invite> "
	}
	m.input.Focus()
}

func (m *Model) closeModal() {
	m.modal = modalNone
	m.modalTarget = nil
	m.modalErr = ""
	m.modalLoading = false
	m.confirmDelete = false
	switch m.mode {
	case modeChat:
		m.input.SetValue("")
		m.input.Placeholder = "Type a message…"
		m.input.Prompt = "> "
		m.input.Focus()
	case modeRooms:
		m.input.SetValue("")
		m.input.Blur()
		m.input.Placeholder = ""
		m.input.Prompt = ""
	}
}

// closeChannel tears the realtime channel down. Close emits leave_room
// before the connection drops, on every exit path; it runs off the UI
// goroutine so a slow write never freezes the screen.
func (m *Model) closeChannel() {
	if m.channel == nil {
		return
	}
	ch := m.channel
	m.channel = nil
	go func() { _ = ch.Close() }()
}

// shutdown releases the channel synchronously. Quit paths use this
// instead of closeChannel: the program exits right after, and the
// leave_room frame must be on the wire before the process goes away.
func (m *Model) shutdown() {
	if m.channel == nil {
		return
	}
	ch := m.channel
	m.channel = nil
	_ = ch.Close()
}

// leaveChat returns to the rooms view, releasing the channel first.
func (m *Model) leaveChat() tea.Cmd {
	m.closeChannel()
	m.mode = modeRooms
	m.room = nil
	m.roomID = ""
	m.feed = nil
	m.errText = ""
	m.loading = true
	m.input.SetValue("")
	m.input.Blur()
	m.input.Placeholder = ""
	m.input.Prompt = ""
	return tea.Batch(m.fetchRoomsCmd(), m.fetchInvitesCmd())
}

// openRoom mounts the chat view: load the history page, then bring up
// the channel. The two are not awaited on each other; a slow history
// fetch must not hold up live delivery.
func (m *Model) openRoom(room chat.Room) tea.Cmd {
	m.mode = modeChat
	picked := room
	m.room = &picked
	m.roomID = room.ID
	m.feed = chat.NewFeed()
	m.errText = ""
	m.notice = ""
	m.input.SetValue("")
	m.input.Placeholder = "Type a message…"
	m.input.Prompt = "> "
	m.input.Focus()

	var token string
	if m.deps.Session != nil {
		token = m.deps.Session.Token
	}
	ch := realtime.New(realtime.Config{
		BaseURL: m.deps.BaseURL,
		Token:   token,
		RoomID:  room.ID,
		Logger:  m.log,
	})
	m.channel = ch

	historyCmd := m.fetchHistoryCmd(room.ID)
	roomCmd := m.fetchRoomCmd(room.ID)
	ch.Start()
	return tea.Batch(historyCmd, roomCmd, m.waitEventCmd(ch), textinput.Blink)
}

func (m *Model) username() string {
	if m.deps.Session == nil {
		return ""
	}
	return m.deps.Session.User.Username
}

func (m *Model) userID() string {
	if m.deps.Session == nil {
		return ""
	}
	return m.deps.Session.User.ID
}
