package api

import "net/url"

const (
	pathLogin    = "/api/auth/login"
	pathRegister = "/api/auth/register"
	pathRooms    = "/api/rooms"
	pathInvites  = "/api/invites"
)

func roomPath(id string) string {
	return pathRooms + "/" + url.PathEscape(id)
}

func roomMessagesPath(id string) string {
	return roomPath(id) + "/messages"
}

func roomInvitePath(id string) string {
	return roomPath(id) + "/invite"
}

func inviteAcceptPath(id string) string {
	return pathInvites + "/" + url.PathEscape(id) + "/accept"
}
