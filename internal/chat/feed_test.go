package chat

import (
	"testing"
	"time"
)

func messageAt(id string, t time.Time) Message {
	return Message{
		ID:        id,
		Content:   "body " + id,
		CreatedAt: t,
		UserID:    "user-1",
		Author:    Author{Username: "alice"},
	}
}

func TestLoadHistoryReversesToAscending(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// The backend serves newest first.
	page := []Message{
		messageAt("m3", base.Add(2*time.Second)),
		messageAt("m2", base.Add(time.Second)),
		messageAt("m1", base),
	}

	feed := NewFeed()
	feed.LoadHistory(page)

	got := feed.Messages()
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].CreatedAt.Before(got[i].CreatedAt) {
			t.Fatalf("feed not strictly ascending at index %d: %v then %v", i, got[i-1].CreatedAt, got[i].CreatedAt)
		}
	}
	if got[0].ID != "m1" || got[2].ID != "m3" {
		t.Fatalf("unexpected order: %s..%s", got[0].ID, got[2].ID)
	}
}

func TestAppendAddsExactlyOneAtEnd(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := NewFeed()
	feed.LoadHistory([]Message{
		messageAt("m2", base.Add(time.Second)),
		messageAt("m1", base),
	})

	before := append([]Message(nil), feed.Messages()...)
	feed.Append(messageAt("m3", base.Add(2*time.Second)))

	got := feed.Messages()
	if len(got) != len(before)+1 {
		t.Fatalf("expected %d messages after append, got %d", len(before)+1, len(got))
	}
	if got[len(got)-1].ID != "m3" {
		t.Fatalf("live message not at end, got %s", got[len(got)-1].ID)
	}
	for i, msg := range before {
		if got[i].ID != msg.ID || got[i].Content != msg.Content {
			t.Fatalf("prior entry %d mutated: %+v vs %+v", i, got[i], msg)
		}
	}
}

func TestFeedDoesNotDeduplicate(t *testing.T) {
	// The sync flow never dedups live events against the fetched
	// history; a redelivered message shows twice.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := NewFeed()
	feed.LoadHistory([]Message{messageAt("m1", base)})
	feed.Append(messageAt("m1", base))

	if feed.Len() != 2 {
		t.Fatalf("expected duplicate to be kept, got %d messages", feed.Len())
	}
}

func TestLoadHistoryEmptyPage(t *testing.T) {
	feed := NewFeed()
	feed.LoadHistory(nil)
	if feed.Len() != 0 {
		t.Fatalf("expected empty feed, got %d", feed.Len())
	}
	feed.Append(messageAt("m1", time.Now()))
	if feed.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", feed.Len())
	}
}
