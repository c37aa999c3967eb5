package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"parley/internal/chat"
	"parley/internal/realtime"
)

var (
	appTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	listBoxStyle       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2).MarginTop(1)
	modalBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("213")).Padding(1, 2).MarginTop(1)
	hintStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	chatHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle     = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle    = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	messageBodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("253"))
	messageBoxStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2).MarginTop(1)
	inputBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	timestampStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	usernameStyle      = lipgloss.NewStyle().Bold(true)
	ownUserStyle       = usernameStyle.Copy().Foreground(lipgloss.Color("213"))
	systemStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	errorStyle         = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	noticeStyle        = statusStyle.Copy().Foreground(lipgloss.Color("42"))
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
	selectedItemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	listItemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	previewStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	privateBadgeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	userColorPalette   = []lipgloss.Color{
		lipgloss.Color("45"),
		lipgloss.Color("81"),
		lipgloss.Color("141"),
		lipgloss.Color("98"),
		lipgloss.Color("63"),
		lipgloss.Color("135"),
		lipgloss.Color("32"),
	}
)

func (m *Model) View() string {
	if m.modal != modalNone {
		return m.renderModal()
	}
	switch m.mode {
	case modeLogin, modeRegister:
		return m.renderAuthView()
	case modeRooms:
		return m.renderRoomsView()
	default:
		return m.renderChatView()
	}
}

func (m *Model) renderAuthView() string {
	title := "Welcome back"
	subtitle := "Sign in to your account"
	if m.mode == modeRegister {
		title = "Create an account"
		subtitle = "Pick an email, a username, and a password"
	}

	sections := []string{
		appTitleStyle.Render("Parley"),
		subtitleStyle.Render(title + " — " + subtitle),
	}
	if m.loading {
		sections = append(sections, connectingStyle.Render("Working…"))
	}
	if m.errText != "" {
		sections = append(sections, errorStyle.Render(m.errText))
	}
	sections = append(sections, inputBoxStyle.Render(m.input.View()))
	toggle := "Tab to register instead"
	if m.mode == modeRegister {
		toggle = "Tab to sign in instead"
	}
	sections = append(sections, hintStyle.Render("Enter to continue • Esc to start over • "+toggle+" • Ctrl+C to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderRoomsView() string {
	title := appTitleStyle.Render(fmt.Sprintf("Conversations — %s", m.username()))
	subtitle := subtitleStyle.Render(fmt.Sprintf("%d conversations  |  %d pending invites", len(m.rooms), len(m.invites)))

	sections := []string{title, subtitle}
	if m.loading {
		sections = append(sections, connectingStyle.Render("Loading conversations…"))
	}
	if m.errText != "" {
		sections = append(sections, errorStyle.Render(m.errText))
	}
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	var roomLines []string
	if len(m.rooms) == 0 {
		roomLines = append(roomLines, hintStyle.Render("No conversations yet. Press N to start one."))
	} else {
		for idx, room := range m.rooms {
			roomLines = append(roomLines, m.renderRoomLine(room, m.focus == focusRooms && idx == m.cursor))
		}
	}
	sections = append(sections, listBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, roomLines...)))

	if len(m.invites) > 0 {
		var inviteLines []string
		inviteLines = append(inviteLines, subtitleStyle.Render("Invites"))
		for idx, invite := range m.invites {
			line := fmt.Sprintf("%s (from %s)", invite.Room.Name, invite.InvitedBy)
			if m.focus == focusInvites && idx == m.inviteCursor {
				inviteLines = append(inviteLines, selectedItemStyle.Render("➤ "+line))
			} else {
				inviteLines = append(inviteLines, listItemStyle.Render("  "+line))
			}
		}
		sections = append(sections, listBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, inviteLines...)))
	}

	sections = append(sections, hintStyle.Render("↑/↓ select • Enter open/accept • Tab invites • N new • O options • R refresh • L logout • Q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderRoomLine(room chat.Room, selected bool) string {
	name := room.Name
	if room.IsPrivate {
		name += privateBadgeStyle.Render(" ⚿")
	}
	line := name
	if room.LastMessage != nil {
		line += previewStyle.Render("  " + truncate(room.LastMessage.Content, 40))
	}
	if selected {
		return selectedItemStyle.Render("➤ ") + line
	}
	return listItemStyle.Render("  ") + line
}

func (m *Model) renderChatView() string {
	name, description := "…", ""
	if m.room != nil {
		name = m.room.Name
		description = m.room.Description
	}
	headerSegments := []string{"Parley", fmt.Sprintf("Room %s", name)}
	if description != "" {
		headerSegments = append(headerSegments, description)
	}
	headerSegments = append(headerSegments, fmt.Sprintf("User %s", m.username()))
	header := chatHeaderStyle.Render(strings.Join(headerSegments, dividerStyle))

	var statusLine string
	if m.channel != nil {
		switch m.channel.State() {
		case realtime.StateJoined:
			statusLine = connectedStyle.Render("Connected")
		case realtime.StateConnecting, realtime.StateConnected:
			statusLine = connectingStyle.Render("Connecting…")
		case realtime.StateError:
			statusLine = connectingStyle.Render("Reconnecting…")
		default:
			statusLine = statusStyle.Render("Offline")
		}
	}

	var messageLines []string
	if m.feed != nil {
		for _, msg := range m.feed.Messages() {
			messageLines = append(messageLines, m.renderMessage(msg))
		}
	}
	if len(messageLines) == 0 {
		messageLines = append(messageLines, systemStyle.Render("No messages yet. Say hi and start the conversation."))
	}

	sections := []string{header}
	if statusLine != "" {
		sections = append(sections, statusLine)
	}
	if m.errText != "" {
		sections = append(sections, errorStyle.Render(m.errText))
	}
	sections = append(sections,
		messageBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, messageLines...)),
		inputBoxStyle.Render(m.input.View()),
		hintStyle.Render("Esc or /leave back • /invite invite user • Ctrl+O options • /quit exit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderMessage stamps the timestamp and picks a style for the author:
// own messages highlighted, system/AI messages italic, everyone else a
// stable color from the palette.
func (m *Model) renderMessage(msg chat.Message) string {
	timestamp := timestampStyle.Render(fmt.Sprintf("[%s]", msg.CreatedAt.Local().Format("15:04:05")))
	if msg.FromSystem() {
		return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", systemStyle.Render("✦ "+msg.Content))
	}

	var nameStyle lipgloss.Style
	if msg.UserID == m.userID() {
		nameStyle = ownUserStyle
	} else {
		nameStyle = usernameStyle.Copy().Foreground(colorForUser(msg.Author.Username))
	}
	name := nameStyle.Render(msg.Author.Username)
	body := messageBodyStyle.Render(strings.ReplaceAll(msg.Content, "\n", "\n   "))
	return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", name, ": ", body)
}

func (m *Model) renderModal() string {
	var title, body, hints string
	switch m.modal {
	case modalCreate:
		title = "New Conversation"
		if m.modalPrivate {
			body = privateBadgeStyle.Render("Private conversation (Ctrl+T to make shared)")
		} else {
			body = privateBadgeStyle.Render("Shared conversation (Ctrl+T to make private)")
		}
		hints = "Enter create • Esc cancel"
	case modalOptions:
		title = "Conversation Options"
		if m.confirmDelete {
			body = errorStyle.Render("Press Ctrl+D again to delete permanently.")
		} else {
			body = hintStyle.Render("Edit the name and press Enter to rename.")
		}
		hints = "Enter rename • Ctrl+D delete • Esc cancel"
	case modalInvite:
		title = "Invite to Conversation"
		body = hintStyle.Render("The user gets a pending invite they can accept.")
		hints = "Enter invite • Esc cancel"
	}

	sections := []string{appTitleStyle.Render(title), body}
	if m.modalLoading {
		sections = append(sections, connectingStyle.Render("Working…"))
	}
	if m.modalErr != "" {
		sections = append(sections, errorStyle.Render(m.modalErr))
	}
	sections = append(sections, inputBoxStyle.Render(m.input.View()), hintStyle.Render(hints))
	return modalBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func colorForUser(name string) lipgloss.Color {
	if name == "" {
		return userColorPalette[0]
	}
	var sum int
	for _, r := range name {
		sum += int(r)
	}
	return userColorPalette[sum%len(userColorPalette)]
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
