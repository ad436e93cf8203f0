package janitor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/storage/sqldb"
	"github.com/daysync/daysync-api/internal/types"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite3"
	cfg.Database.StoragePath = ":memory:"

	st, err := sqldb.New(cfg)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return st
}

func TestSweepCleansEverything(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	// A user, a cached route, and an already-expired weather entry.
	u, err := st.CreateUser(ctx, "sleepy", types.DefaultPrepTime)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	lat, lng := 37.49, 127.02
	dlat, dlng := 37.55, 126.99
	if _, err := st.SaveRoute(ctx, types.RouteSaveRequest{
		StartLat: &lat, StartLng: &lng, EndLat: &dlat, EndLng: &dlng,
		RouteData: json.RawMessage(`{"legs": []}`),
	}); err != nil {
		t.Fatalf("seed route: %v", err)
	}

	if _, err := st.PutWeather(ctx, 37.49, 127.02,
		json.RawMessage(`{"temp": 21}`), -time.Minute); err != nil {
		t.Fatalf("seed weather: %v", err)
	}

	// Retention of zero days makes every existing row stale, so one
	// sweep should catch all three kinds.
	j := New(st, slog.New(slog.NewTextHandler(io.Discard, nil)), config.Janitor{
		Interval:          time.Hour,
		InactiveUserDays:  0,
		RouteRetentionDay: 0,
	})
	j.sweep(ctx)

	if _, err := st.GetUserByUUID(ctx, u.UUID); err == nil {
		t.Error("inactive user still visible after sweep")
	}

	routes, err := st.RecentRoutes(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentRoutes: %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("routes after sweep = %d, want 0", len(routes))
	}

	// The sweep already purged the expired weather row, so a direct
	// purge afterwards finds nothing left to delete.
	purged, err := st.PurgeExpiredCaches(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredCaches: %v", err)
	}
	if purged != 0 {
		t.Errorf("rows left for second purge = %d, want 0", purged)
	}
}

func TestRunDisabledByZeroInterval(t *testing.T) {
	st := newTestStorage(t)

	j := New(st, slog.New(slog.NewTextHandler(io.Discard, nil)), config.Janitor{
		Interval: 0,
	})

	done := make(chan struct{})
	go func() {
		j.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return with interval 0")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	st := newTestStorage(t)

	j := New(st, slog.New(slog.NewTextHandler(io.Discard, nil)), config.Janitor{
		Interval:          50 * time.Millisecond,
		InactiveUserDays:  30,
		RouteRetentionDay: 7,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
