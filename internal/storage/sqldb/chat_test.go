package sqldb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/daysync/daysync-api/internal/storage"
)

func TestAddChatMessageBumpsSession(t *testing.T) {
	s := newTestDB(t)
	u := mustCreateUser(t, s)
	ctx := context.Background()

	se, err := s.CreateChatSession(ctx, u.UUID, "trip", "general")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	backdate(t, s, "sessions", "updated_at", se.ID, time.Now().UTC().Add(-time.Hour))

	if _, err := s.AddChatMessage(ctx, se.ID, "hello", true, nil, nil); err != nil {
		t.Fatalf("add message: %v", err)
	}

	got, err := s.GetChatSession(ctx, se.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !got.UpdatedAt.After(time.Now().UTC().Add(-time.Minute)) {
		t.Errorf("updated_at = %v, want bumped to now", got.UpdatedAt)
	}
}

func TestAddChatMessageUnknownSession(t *testing.T) {
	s := newTestDB(t)

	_, err := s.AddChatMessage(context.Background(), 999, "hello", true, nil, nil)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown session: err = %v, want ErrNotFound", err)
	}
}

func TestRecentMessagesReturnsTailInOrder(t *testing.T) {
	s := newTestDB(t)
	u := mustCreateUser(t, s)
	ctx := context.Background()

	se, err := s.CreateChatSession(ctx, u.UUID, "trip", "general")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	for i := 1; i <= 15; i++ {
		if _, err := s.AddChatMessage(ctx, se.ID, fmt.Sprintf("msg %d", i), i%2 == 1, nil, nil); err != nil {
			t.Fatalf("add message %d: %v", i, err)
		}
	}

	got, err := s.RecentMessages(ctx, se.ID, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}

	if len(got) != 10 {
		t.Fatalf("recent = %d messages, want 10", len(got))
	}
	// The tail of the conversation, oldest first: msg 6 .. msg 15.
	for i, m := range got {
		want := fmt.Sprintf("msg %d", i+6)
		if m.Content != want {
			t.Errorf("recent[%d] = %q, want %q", i, m.Content, want)
		}
	}
}

func TestListChatSessionsOrdersByActivity(t *testing.T) {
	s := newTestDB(t)
	u := mustCreateUser(t, s)
	ctx := context.Background()

	older, err := s.CreateChatSession(ctx, u.UUID, "older", "general")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	newer, err := s.CreateChatSession(ctx, u.UUID, "newer", "general")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	backdate(t, s, "sessions", "updated_at", older.ID, time.Now().UTC().Add(-2*time.Hour))
	backdate(t, s, "sessions", "updated_at", newer.ID, time.Now().UTC().Add(-time.Hour))

	// Activity on the older session moves it to the front.
	if _, err := s.AddChatMessage(ctx, older.ID, "ping", true, nil, nil); err != nil {
		t.Fatalf("add message: %v", err)
	}

	sessions, err := s.ListChatSessions(ctx, u.UUID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].ID != older.ID {
		t.Errorf("front session = %d, want the recently active %d", sessions[0].ID, older.ID)
	}
}

func TestDeleteChatSessionCascadesMessages(t *testing.T) {
	s := newTestDB(t)
	u := mustCreateUser(t, s)
	ctx := context.Background()

	se, err := s.CreateChatSession(ctx, u.UUID, "trip", "general")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := s.AddChatMessage(ctx, se.ID, "hello", true, nil, nil); err != nil {
		t.Fatalf("add message: %v", err)
	}

	if err := s.DeleteChatSession(ctx, se.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM messages WHERE session_id = ?", se.ID).Scan(&count); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Errorf("messages after session delete = %d, want 0", count)
	}

	if _, err := s.ListSessionMessages(ctx, se.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("listing deleted session: err = %v, want ErrNotFound", err)
	}
}
