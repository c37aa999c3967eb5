package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/api"
	"parley/internal/realtime"
)

// Update reacts to key presses and asynchronous results to drive the
// application state. All state mutation happens here, on the single UI
// goroutine.
func (m *Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := message.(type) {
	case tea.KeyMsg:
		if typed.Type == tea.KeyCtrlC {
			m.shutdown()
			return m, tea.Quit
		}
		if m.modal != modalNone {
			return m.updateModal(typed)
		}
		switch m.mode {
		case modeLogin, modeRegister:
			return m.updateAuth(typed)
		case modeRooms:
			return m.updateRooms(typed)
		case modeChat:
			return m.updateChat(typed)
		}
		return m, nil

	case authResultMsg:
		m.loading = false
		if typed.err != nil {
			m.errText = typed.err.Error()
			return m, nil
		}
		sess := typed.sess
		m.deps.Session = &sess
		m.deps.API.SetToken(sess.Token)
		m.errText = ""
		m.mode = modeRooms
		m.loading = true
		m.input.SetValue("")
		m.input.Blur()
		m.input.Prompt = ""
		m.input.Placeholder = ""
		m.input.EchoMode = textinput.EchoNormal
		return m, tea.Batch(m.fetchRoomsCmd(), m.fetchInvitesCmd())

	case sessionClearedMsg:
		if typed.err != nil {
			m.log.Warn().Err(typed.err).Msg("session clear failed")
		}
		m.deps.Session = nil
		m.deps.API.SetToken("")
		m.rooms = nil
		m.invites = nil
		m.enterAuth(modeLogin)
		return m, textinput.Blink

	case roomsLoadedMsg:
		m.loading = false
		if typed.err != nil {
			if errors.Is(typed.err, api.ErrUnauthorized) {
				return m, m.logoutCmd()
			}
			m.errText = typed.err.Error()
			return m, nil
		}
		// Displayed in server order; the client never re-sorts.
		m.rooms = typed.rooms
		if m.cursor >= len(m.rooms) {
			m.cursor = len(m.rooms) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case invitesLoadedMsg:
		if typed.err != nil {
			m.log.Warn().Err(typed.err).Msg("invite fetch failed")
			return m, nil
		}
		m.invites = typed.invites
		if m.inviteCursor >= len(m.invites) {
			m.inviteCursor = len(m.invites) - 1
		}
		if m.inviteCursor < 0 {
			m.inviteCursor = 0
		}
		if len(m.invites) == 0 {
			m.focus = focusRooms
		}
		return m, nil

	case roomLoadedMsg:
		if typed.roomID != m.roomID {
			return m, nil
		}
		if typed.err != nil {
			// Room gone or not ours; fall back to the rooms view.
			m.log.Warn().Err(typed.err).Str("room", typed.roomID).Msg("room fetch failed")
			return m, m.leaveChat()
		}
		m.room = typed.room
		return m, nil

	case historyLoadedMsg:
		if typed.roomID != m.roomID || m.feed == nil {
			return m, nil
		}
		if typed.err != nil {
			m.errText = typed.err.Error()
			return m, nil
		}
		m.feed.LoadHistory(typed.messages)
		return m, nil

	case messageSentMsg:
		// A late ack from a room we already left must not touch the
		// current view's input.
		if typed.roomID != m.roomID {
			return m, nil
		}
		if typed.err != nil {
			m.errText = typed.err.Error()
			return m, nil
		}
		// Cleared only after the 2xx; the message itself shows up when
		// the channel delivers it back.
		m.errText = ""
		m.input.SetValue("")
		return m, nil

	case roomCreatedMsg:
		m.modalLoading = false
		if typed.err != nil {
			m.modalErr = typed.err.Error()
			return m, nil
		}
		m.closeModal()
		m.loading = true
		// Full re-fetch instead of a local insert keeps client and
		// server trivially consistent.
		return m, m.fetchRoomsCmd()

	case roomRenamedMsg:
		m.modalLoading = false
		if typed.err != nil {
			m.modalErr = typed.err.Error()
			return m, nil
		}
		m.closeModal()
		m.loading = true
		return m, m.fetchRoomsCmd()

	case roomDeletedMsg:
		m.modalLoading = false
		if typed.err != nil {
			m.modalErr = typed.err.Error()
			return m, nil
		}
		m.closeModal()
		if m.mode == modeChat && typed.roomID == m.roomID {
			return m, m.leaveChat()
		}
		m.loading = true
		return m, m.fetchRoomsCmd()

	case inviteSentMsg:
		m.modalLoading = false
		if typed.err != nil {
			m.modalErr = typed.err.Error()
			return m, nil
		}
		m.notice = "Invitation sent."
		m.closeModal()
		return m, nil

	case inviteAcceptedMsg:
		if typed.err != nil {
			m.errText = typed.err.Error()
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.fetchRoomsCmd(), m.fetchInvitesCmd())

	case channelEventMsg:
		return m.updateChannelEvent(typed)
	}

	return m, nil
}

func (m *Model) updateAuth(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyTab:
		if m.mode == modeLogin {
			m.enterAuth(modeRegister)
		} else {
			m.enterAuth(modeLogin)
		}
		return m, textinput.Blink
	case tea.KeyEsc:
		m.enterAuth(m.mode)
		return m, nil
	case tea.KeyEnter:
		if m.loading {
			return m, nil
		}
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}
		switch m.stage {
		case stageEmail:
			m.authEmail = value
			if m.mode == modeRegister {
				m.stage = stageUsername
				m.input.SetValue("")
				m.input.Placeholder = "Pick a username"
				m.input.Prompt = "username> "
			} else {
				m.toPasswordStage()
			}
			return m, nil
		case stageUsername:
			m.authUsername = value
			m.toPasswordStage()
			return m, nil
		case stagePassword:
			password := m.input.Value()
			m.loading = true
			m.errText = ""
			if m.mode == modeRegister {
				return m, m.registerCmd(m.authEmail, m.authUsername, password)
			}
			return m, m.loginCmd(m.authEmail, password)
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(key)
		return m, cmd
	}
}

func (m *Model) toPasswordStage() {
	m.stage = stagePassword
	m.input.SetValue("")
	m.input.Placeholder = "Password"
	m.input.Prompt = "password> "
	m.input.EchoMode = textinput.EchoPassword
}

func (m *Model) updateRooms(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.focus == focusInvites {
			if m.inviteCursor > 0 {
				m.inviteCursor--
			}
		} else if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.focus == focusInvites {
			if m.inviteCursor < len(m.invites)-1 {
				m.inviteCursor++
			}
		} else if m.cursor < len(m.rooms)-1 {
			m.cursor++
		}
		return m, nil
	case "tab":
		if m.focus == focusRooms && len(m.invites) > 0 {
			m.focus = focusInvites
		} else {
			m.focus = focusRooms
		}
		return m, nil
	case "enter":
		if m.focus == focusInvites {
			if invite := m.selectedInvite(); invite != nil {
				m.errText = ""
				return m, m.acceptInviteCmd(invite.ID)
			}
			return m, nil
		}
		if room := m.selectedRoom(); room != nil {
			return m, m.openRoom(*room)
		}
		return m, nil
	case "n":
		m.openModal(modalCreate, nil)
		return m, textinput.Blink
	case "o":
		if room := m.selectedRoom(); room != nil {
			m.openModal(modalOptions, room)
			return m, textinput.Blink
		}
		return m, nil
	case "r":
		m.loading = true
		m.errText = ""
		m.notice = ""
		return m, tea.Batch(m.fetchRoomsCmd(), m.fetchInvitesCmd())
	case "l":
		return m, m.logoutCmd()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateChat(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		return m, m.leaveChat()
	case tea.KeyCtrlO:
		if m.room != nil {
			m.openModal(modalOptions, m.room)
			return m, textinput.Blink
		}
		return m, nil
	case tea.KeyEnter:
		trimmed := strings.TrimSpace(m.input.Value())
		if strings.HasPrefix(trimmed, "/") {
			return m.runChatCommand(strings.ToLower(trimmed))
		}
		if trimmed != "" {
			return m, m.sendMessageCmd(m.roomID, trimmed)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *Model) runChatCommand(command string) (tea.Model, tea.Cmd) {
	switch command {
	case "/leave", "/back":
		return m, m.leaveChat()
	case "/invite":
		m.input.SetValue("")
		if m.room != nil {
			m.openModal(modalInvite, m.room)
		}
		return m, textinput.Blink
	case "/quit", "/exit":
		m.shutdown()
		return m, tea.Quit
	}
	// Unknown commands are dropped rather than sent as messages.
	m.input.SetValue("")
	return m, nil
}

func (m *Model) updateModal(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyEsc {
		if !m.modalLoading {
			m.closeModal()
		}
		return m, nil
	}
	if m.modalLoading {
		return m, nil
	}
	switch m.modal {
	case modalCreate:
		switch key.Type {
		case tea.KeyCtrlT:
			m.modalPrivate = !m.modalPrivate
			return m, nil
		case tea.KeyEnter:
			name := strings.TrimSpace(m.input.Value())
			if name == "" {
				m.modalErr = "Please enter a name."
				return m, nil
			}
			m.modalLoading = true
			m.modalErr = ""
			return m, m.createRoomCmd(name, m.modalPrivate)
		}
	case modalOptions:
		switch key.Type {
		case tea.KeyCtrlD:
			if !m.confirmDelete {
				m.confirmDelete = true
				return m, nil
			}
			m.modalLoading = true
			m.modalErr = ""
			return m, m.deleteRoomCmd(m.modalTarget.ID)
		case tea.KeyEnter:
			name := strings.TrimSpace(m.input.Value())
			// Submit stays disabled for an empty or unchanged name.
			if name == "" || name == m.modalTarget.Name {
				return m, nil
			}
			m.modalLoading = true
			m.modalErr = ""
			return m, m.renameRoomCmd(m.modalTarget.ID, name)
		}
	case modalInvite:
		if key.Type == tea.KeyEnter {
			username := strings.TrimSpace(m.input.Value())
			if username == "" {
				m.modalErr = "Please enter a username."
				return m, nil
			}
			m.modalLoading = true
			m.modalErr = ""
			return m, m.inviteUserCmd(m.modalTarget.ID, username)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *Model) updateChannelEvent(msg channelEventMsg) (tea.Model, tea.Cmd) {
	// Ignore events from a channel we already tore down; a new view may
	// own a fresh one by now.
	if msg.ch != m.channel {
		return m, nil
	}
	if !msg.ok {
		// Stream ended, nothing more to chain.
		return m, nil
	}
	switch msg.ev.Kind {
	case realtime.KindMessage:
		if m.feed != nil && msg.ev.Message != nil {
			m.feed.Append(*msg.ev.Message)
		}
	case realtime.KindError, realtime.KindDisconnect:
		// Logged by the channel; never surfaced to the user. The status
		// line reads the channel state directly.
	case realtime.KindJoin, realtime.KindLeave:
	}
	return m, m.waitEventCmd(msg.ch)
}
