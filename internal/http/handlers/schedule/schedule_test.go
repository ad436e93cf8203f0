package schedule_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/http/handlers/schedule"
	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/storage/sqldb"
	"github.com/daysync/daysync-api/internal/types"
)

func newServer(t *testing.T) (*httptest.Server, storage.Storage) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite3"
	cfg.Database.StoragePath = ":memory:"

	st, err := sqldb.New(cfg)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/schedule/calendar/events", schedule.CreateEvent(st))
	mux.HandleFunc("GET /api/schedule/calendar/events/{uuid}", schedule.ListEvents(st))
	mux.HandleFunc("PUT /api/schedule/calendar/events/{id}", schedule.UpdateEvent(st))
	mux.HandleFunc("DELETE /api/schedule/calendar/events/{id}", schedule.DeleteEvent(st))
	mux.HandleFunc("POST /api/schedule/alarms", schedule.CreateAlarm(st))
	mux.HandleFunc("GET /api/schedule/alarms/{uuid}", schedule.ListAlarms(st))
	mux.HandleFunc("PUT /api/schedule/alarms/{id}", schedule.UpdateAlarm(st))
	mux.HandleFunc("PUT /api/schedule/alarms/{id}/toggle", schedule.ToggleAlarm(st))
	mux.HandleFunc("DELETE /api/schedule/alarms/{id}", schedule.DeleteAlarm(st))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, st
}

func seedUser(t *testing.T, st storage.Storage) types.User {
	t.Helper()

	u, err := st.CreateUser(context.Background(), types.DefaultNickname, types.DefaultPrepTime)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func put(t *testing.T, url, body string) *http.Response {
	t.Helper()

	req, _ := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestCreateEventRequiresExistingUser(t *testing.T) {
	srv, st := newServer(t)
	u := seedUser(t, st)

	body := func(uuid string) string {
		return fmt.Sprintf(`{
			"user_uuid": %q,
			"event_title": "dentist",
			"event_start_time": "2026-09-01T15:00:00Z"
		}`, uuid)
	}

	t.Run("known user", func(t *testing.T) {
		resp := post(t, srv.URL+"/api/schedule/calendar/events", body(u.UUID))
		if resp.StatusCode != http.StatusCreated {
			t.Errorf("status = %d, want 201", resp.StatusCode)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := post(t, srv.URL+"/api/schedule/calendar/events", body(types.NewUUID()))
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("missing title", func(t *testing.T) {
		resp := post(t, srv.URL+"/api/schedule/calendar/events",
			fmt.Sprintf(`{"user_uuid": %q, "event_start_time": "2026-09-01T15:00:00Z"}`, u.UUID))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestListEventsWindow(t *testing.T) {
	srv, st := newServer(t)
	u := seedUser(t, st)
	ctx := context.Background()

	mk := func(start time.Time) {
		t.Helper()
		_, err := st.CreateCalendarEvent(ctx, types.CalendarEventCreate{
			UserUUID: u.UUID, Title: "ev", StartTime: start,
		})
		if err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
	mk(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))
	mk(time.Date(2026, 9, 8, 9, 0, 0, 0, time.UTC))

	resp, err := http.Get(srv.URL + "/api/schedule/calendar/events/" + u.UUID +
		"?from=2026-09-05T00:00:00Z&to=2026-09-10T00:00:00Z")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var events []types.CalendarEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("windowed events = %d, want 1", len(events))
	}

	badResp, err := http.Get(srv.URL + "/api/schedule/calendar/events/" + u.UUID + "?from=yesterday")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer badResp.Body.Close()

	if badResp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad window status = %d, want 400", badResp.StatusCode)
	}
}

func TestAlarmLifecycle(t *testing.T) {
	srv, st := newServer(t)
	u := seedUser(t, st)

	resp := post(t, srv.URL+"/api/schedule/alarms", fmt.Sprintf(`{
		"user_uuid": %q, "alarm_time": "2026-09-01T07:30:00Z"
	}`, u.UUID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	var alarm types.Alarm
	if err := json.NewDecoder(resp.Body).Decode(&alarm); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if alarm.Label != types.DefaultAlarmLabel {
		t.Errorf("label = %q, want default %q", alarm.Label, types.DefaultAlarmLabel)
	}
	if !alarm.IsEnabled {
		t.Error("new alarm not enabled")
	}

	// Toggle off.
	toggleResp := put(t, fmt.Sprintf("%s/api/schedule/alarms/%d/toggle", srv.URL, alarm.ID), "")
	if toggleResp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d, want 200", toggleResp.StatusCode)
	}

	// Toggle answers with the full alarm so the app can re-render the
	// row without a second fetch.
	var toggled types.Alarm
	if err := json.NewDecoder(toggleResp.Body).Decode(&toggled); err != nil {
		t.Fatalf("decode toggle: %v", err)
	}
	if toggled.IsEnabled {
		t.Error("toggle did not disable")
	}
	if toggled.ID != alarm.ID {
		t.Errorf("toggled id = %d, want %d", toggled.ID, alarm.ID)
	}
	if toggled.UserUUID != u.UUID {
		t.Errorf("toggled user_uuid = %q, want %q", toggled.UserUUID, u.UUID)
	}
	if toggled.Label != types.DefaultAlarmLabel {
		t.Errorf("toggled label = %q, want %q", toggled.Label, types.DefaultAlarmLabel)
	}
	if !toggled.AlarmTime.Equal(alarm.AlarmTime) {
		t.Errorf("toggled alarm_time = %v, want %v", toggled.AlarmTime, alarm.AlarmTime)
	}

	// The default list drops the disabled alarm; ?all=true keeps it.
	listResp, err := http.Get(srv.URL + "/api/schedule/alarms/" + u.UUID)
	if err != nil {
		t.Fatalf("GET alarms: %v", err)
	}
	defer listResp.Body.Close()

	var alarms []types.Alarm
	if err := json.NewDecoder(listResp.Body).Decode(&alarms); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(alarms) != 0 {
		t.Errorf("enabled list = %d alarms, want 0", len(alarms))
	}

	allResp, err := http.Get(srv.URL + "/api/schedule/alarms/" + u.UUID + "?all=true")
	if err != nil {
		t.Fatalf("GET all alarms: %v", err)
	}
	defer allResp.Body.Close()

	if err := json.NewDecoder(allResp.Body).Decode(&alarms); err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(alarms) != 1 {
		t.Errorf("all list = %d alarms, want 1", len(alarms))
	}

	// Partial update of the time only.
	updResp := put(t, fmt.Sprintf("%s/api/schedule/alarms/%d", srv.URL, alarm.ID),
		`{"alarm_time": "2026-09-01T08:00:00Z"}`)
	if updResp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", updResp.StatusCode)
	}

	var updated types.Alarm
	if err := json.NewDecoder(updResp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if !updated.AlarmTime.Equal(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("alarm_time = %v", updated.AlarmTime)
	}
	if updated.Label != types.DefaultAlarmLabel {
		t.Errorf("label changed by partial update: %q", updated.Label)
	}
}

func TestUpdateEventNotFound(t *testing.T) {
	srv, _ := newServer(t)

	resp := put(t, srv.URL+"/api/schedule/calendar/events/999", `{"event_title": "x"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
