package sqldb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
)

func mustCreateEvent(t *testing.T, s *DB, userUUID string, start time.Time) types.CalendarEvent {
	t.Helper()

	ev, err := s.CreateCalendarEvent(context.Background(), types.CalendarEventCreate{
		UserUUID:  userUUID,
		Title:     "event",
		StartTime: start,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}

func TestListCalendarEventsWindowAndOrder(t *testing.T) {
	s := newTestDB(t)
	u := mustCreateUser(t, s)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	early := mustCreateEvent(t, s, u.UUID, base)
	mid := mustCreateEvent(t, s, u.UUID, base.Add(24*time.Hour))
	late := mustCreateEvent(t, s, u.UUID, base.Add(48*time.Hour))

	t.Run("no window, newest start first", func(t *testing.T) {
		events, err := s.ListCalendarEvents(ctx, u.UUID, nil, nil)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("events = %d, want 3", len(events))
		}
		if events[0].ID != late.ID || events[2].ID != early.ID {
			t.Errorf("order = [%d %d %d], want newest first", events[0].ID, events[1].ID, events[2].ID)
		}
	})

	t.Run("windowed", func(t *testing.T) {
		from := base.Add(12 * time.Hour)
		to := base.Add(36 * time.Hour)

		events, err := s.ListCalendarEvents(ctx, u.UUID, &from, &to)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(events) != 1 || events[0].ID != mid.ID {
			t.Errorf("windowed list = %+v, want only the middle event", events)
		}
	})
}

func TestDeleteCalendarEventDetachesAlarm(t *testing.T) {
	s := newTestDB(t)
	u := mustCreateUser(t, s)
	ctx := context.Background()

	ev := mustCreateEvent(t, s, u.UUID, time.Now().UTC().Add(24*time.Hour))

	a, err := s.CreateAlarm(ctx, types.AlarmCreate{
		UserUUID:        u.UUID,
		AlarmTime:       time.Now().UTC().Add(23 * time.Hour),
		Label:           "leave for event",
		CalendarEventID: &ev.ID,
	})
	if err != nil {
		t.Fatalf("create alarm: %v", err)
	}

	if err := s.DeleteCalendarEvent(ctx, ev.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}

	// The alarm must survive with its event link cleared.
	got, err := s.getAlarm(ctx, a.ID)
	if err != nil {
		t.Fatalf("alarm gone after event delete: %v", err)
	}
	if got.CalendarEventID != nil {
		t.Errorf("calendar_event_id = %v, want nil after event delete", *got.CalendarEventID)
	}
}

func TestListAlarmsEnabledFilterAndOrder(t *testing.T) {
	s := newTestDB(t)
	u := mustCreateUser(t, s)
	ctx := context.Background()

	mk := func(at time.Time, enabled bool) types.Alarm {
		t.Helper()
		a, err := s.CreateAlarm(ctx, types.AlarmCreate{
			UserUUID:  u.UUID,
			AlarmTime: at,
			Label:     "alarm",
			IsEnabled: &enabled,
		})
		if err != nil {
			t.Fatalf("create alarm: %v", err)
		}
		return a
	}

	base := time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC)
	second := mk(base.Add(time.Hour), true)
	disabled := mk(base.Add(30*time.Minute), false)
	first := mk(base, true)

	enabled, err := s.ListAlarms(ctx, u.UUID, false)
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(enabled) != 2 {
		t.Fatalf("enabled alarms = %d, want 2", len(enabled))
	}
	if enabled[0].ID != first.ID || enabled[1].ID != second.ID {
		t.Errorf("order = [%d %d], want soonest first", enabled[0].ID, enabled[1].ID)
	}

	all, err := s.ListAlarms(ctx, u.UUID, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all alarms = %d, want 3", len(all))
	}

	_ = disabled
}

func TestToggleAlarm(t *testing.T) {
	s := newTestDB(t)
	u := mustCreateUser(t, s)
	ctx := context.Background()

	a, err := s.CreateAlarm(ctx, types.AlarmCreate{
		UserUUID:  u.UUID,
		AlarmTime: time.Now().UTC().Add(time.Hour),
		Label:     "alarm",
	})
	if err != nil {
		t.Fatalf("create alarm: %v", err)
	}
	if !a.IsEnabled {
		t.Fatal("new alarm should default to enabled")
	}

	toggled, err := s.ToggleAlarm(ctx, a.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.IsEnabled {
		t.Error("first toggle should disable")
	}

	toggled, err = s.ToggleAlarm(ctx, a.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.IsEnabled {
		t.Error("second toggle should re-enable")
	}

	if _, err := s.ToggleAlarm(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("toggling unknown alarm: err = %v, want ErrNotFound", err)
	}
}

func TestDeletingUserCascadesSchedule(t *testing.T) {
	s := newTestDB(t)
	u := mustCreateUser(t, s)
	ctx := context.Background()

	mustCreateEvent(t, s, u.UUID, time.Now().UTC().Add(time.Hour))

	// A soft delete keeps the row, so events stay. A hard row delete
	// (retention would do this eventually) cascades.
	if _, err := s.db.Exec("DELETE FROM users WHERE id = ?", u.ID); err != nil {
		t.Fatalf("hard delete user: %v", err)
	}

	events, err := s.ListCalendarEvents(ctx, u.UUID, nil, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events after user row delete = %d, want 0", len(events))
	}
}
