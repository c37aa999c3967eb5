package chat

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessageDecode(t *testing.T) {
	payload := `{
		"id": "msg-1",
		"content": "hello",
		"created_at": "2026-03-01T12:00:00Z",
		"user_id": "user-1",
		"users": {"username": "alice"}
	}`
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if msg.Author.Username != "alice" {
		t.Fatalf("expected nested author username, got %q", msg.Author.Username)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !msg.CreatedAt.Equal(want) {
		t.Fatalf("created_at = %v, want %v", msg.CreatedAt, want)
	}
}

func TestMessageValidateRejectsIncomplete(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"missing id", Message{CreatedAt: time.Now(), UserID: "u1"}},
		{"missing created_at", Message{ID: "m1", UserID: "u1"}},
		{"missing user_id", Message{ID: "m1", CreatedAt: time.Now()}},
	}
	for _, tc := range cases {
		if err := tc.msg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestFromSystem(t *testing.T) {
	system := Message{UserID: "00000000-0000-0000-0000-000000000000"}
	if !system.FromSystem() {
		t.Fatalf("zero-uuid author should be system")
	}
	human := Message{UserID: "4f5a9b1c-0000-0000-0000-000000000001"}
	if human.FromSystem() {
		t.Fatalf("non-zero author flagged as system")
	}
}

func TestInviteDecode(t *testing.T) {
	payload := `{
		"id": "inv-1",
		"room_id": "room-1",
		"invited_by": "bob",
		"invited_username": "alice",
		"status": "pending",
		"rooms": {"name": "Project X"}
	}`
	var invite Invite
	if err := json.Unmarshal([]byte(payload), &invite); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := invite.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if invite.Room.Name != "Project X" {
		t.Fatalf("expected nested room name, got %q", invite.Room.Name)
	}
}

func TestRoomDecodeWithLastMessage(t *testing.T) {
	payload := `{
		"id": "room-1",
		"name": "general",
		"description": "",
		"is_private": true,
		"created_by": "user-1",
		"last_message": {"content": "see you", "created_at": "2026-03-01T12:00:00Z"}
	}`
	var room Room
	if err := json.Unmarshal([]byte(payload), &room); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := room.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if room.LastMessage == nil || room.LastMessage.Content != "see you" {
		t.Fatalf("last_message not decoded: %+v", room.LastMessage)
	}
	var bare Room
	if err := json.Unmarshal([]byte(`{"id":"r2","name":"x","is_private":false,"created_by":"u"}`), &bare); err != nil {
		t.Fatalf("unmarshal bare: %v", err)
	}
	if bare.LastMessage != nil {
		t.Fatalf("expected nil last_message when absent")
	}
}
