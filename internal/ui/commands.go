package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/chat"
	"parley/internal/realtime"
	"parley/internal/session"
)

// Asynchronous results delivered back into Update. Every network call
// runs inside a tea.Cmd so the UI goroutine never blocks.
type (
	authResultMsg struct {
		sess session.Session
		err  error
	}
	sessionClearedMsg struct{ err error }
	roomsLoadedMsg    struct {
		rooms []chat.Room
		err   error
	}
	invitesLoadedMsg struct {
		invites []chat.Invite
		err     error
	}
	roomLoadedMsg struct {
		roomID string
		room   *chat.Room
		err    error
	}
	historyLoadedMsg struct {
		roomID   string
		messages []chat.Message
		err      error
	}
	messageSentMsg struct {
		roomID string
		err    error
	}
	roomCreatedMsg struct {
		room *chat.Room
		err  error
	}
	roomRenamedMsg struct{ err error }
	roomDeletedMsg struct {
		roomID string
		err    error
	}
	inviteSentMsg     struct{ err error }
	inviteAcceptedMsg struct{ err error }
	channelEventMsg   struct {
		ch *realtime.Channel
		ev realtime.Event
		ok bool
	}
)

func (m *Model) loginCmd(email, password string) tea.Cmd {
	client, store := m.deps.API, m.deps.Sessions
	return func() tea.Msg {
		ctx := context.Background()
		res, err := client.Login(ctx, email, password)
		if err != nil {
			return authResultMsg{err: err}
		}
		sess := session.Session{Token: res.Token, User: res.User}
		if err := store.Save(ctx, sess); err != nil {
			return authResultMsg{err: err}
		}
		return authResultMsg{sess: sess}
	}
}

func (m *Model) registerCmd(email, username, password string) tea.Cmd {
	client, store := m.deps.API, m.deps.Sessions
	return func() tea.Msg {
		ctx := context.Background()
		res, err := client.Register(ctx, email, username, password)
		if err != nil {
			return authResultMsg{err: err}
		}
		sess := session.Session{Token: res.Token, User: res.User}
		if err := store.Save(ctx, sess); err != nil {
			return authResultMsg{err: err}
		}
		return authResultMsg{sess: sess}
	}
}

func (m *Model) logoutCmd() tea.Cmd {
	store := m.deps.Sessions
	return func() tea.Msg {
		return sessionClearedMsg{err: store.Clear(context.Background())}
	}
}

func (m *Model) fetchRoomsCmd() tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		rooms, err := client.ListRooms(context.Background())
		return roomsLoadedMsg{rooms: rooms, err: err}
	}
}

func (m *Model) fetchInvitesCmd() tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		invites, err := client.ListInvites(context.Background())
		return invitesLoadedMsg{invites: invites, err: err}
	}
}

func (m *Model) fetchRoomCmd(roomID string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		room, err := client.GetRoom(context.Background(), roomID)
		return roomLoadedMsg{roomID: roomID, room: room, err: err}
	}
}

func (m *Model) fetchHistoryCmd(roomID string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		messages, err := client.ListMessages(context.Background(), roomID)
		return historyLoadedMsg{roomID: roomID, messages: messages, err: err}
	}
}

func (m *Model) sendMessageCmd(roomID, content string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		// The response carries the created message, but the feed waits
		// for the channel's new_message delivery instead.
		_, err := client.SendMessage(context.Background(), roomID, content)
		return messageSentMsg{roomID: roomID, err: err}
	}
}

func (m *Model) createRoomCmd(name string, isPrivate bool) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		room, err := client.CreateRoom(context.Background(), name, isPrivate)
		return roomCreatedMsg{room: room, err: err}
	}
}

func (m *Model) renameRoomCmd(roomID, name string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		_, err := client.RenameRoom(context.Background(), roomID, name)
		return roomRenamedMsg{err: err}
	}
}

func (m *Model) deleteRoomCmd(roomID string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		err := client.DeleteRoom(context.Background(), roomID)
		return roomDeletedMsg{roomID: roomID, err: err}
	}
}

func (m *Model) inviteUserCmd(roomID, username string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		return inviteSentMsg{err: client.InviteUser(context.Background(), roomID, username)}
	}
}

func (m *Model) acceptInviteCmd(inviteID string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		return inviteAcceptedMsg{err: client.AcceptInvite(context.Background(), inviteID)}
	}
}

// waitEventCmd reads one event from the channel's stream and re-chains
// from Update, the same one-read-per-command pattern the rest of the
// app uses for the websocket.
func (m *Model) waitEventCmd(ch *realtime.Channel) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch.Events()
		return channelEventMsg{ch: ch, ev: ev, ok: ok}
	}
}
