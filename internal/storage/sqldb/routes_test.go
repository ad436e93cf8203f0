package sqldb

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
)

func f64(v float64) *float64 { return &v }

func saveReq(user *string, payload string) types.RouteSaveRequest {
	return types.RouteSaveRequest{
		UserUUID:  user,
		StartLat:  f64(37.4979),
		StartLng:  f64(127.0276),
		EndLat:    f64(37.5547),
		EndLng:    f64(126.9707),
		RouteData: json.RawMessage(payload),
	}
}

func TestSaveRouteDedupesWithinWindow(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	first, err := s.SaveRoute(ctx, saveReq(nil, `{"legs":1}`))
	if err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Identical endpoints inside the window: same row, new payload.
	second, err := s.SaveRoute(ctx, saveReq(nil, `{"legs":2}`))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("dedupe save inserted a new row: id %d, want %d", second.ID, first.ID)
	}
	if string(second.RouteData) != `{"legs":2}` {
		t.Errorf("payload not replaced: %s", second.RouteData)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM route_cache").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("route rows = %d, want 1", count)
	}
}

func TestSaveRouteOutsideWindowInserts(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	first, err := s.SaveRoute(ctx, saveReq(nil, `{"legs":1}`))
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	backdate(t, s, "route_cache", "created_at", first.ID,
		time.Now().UTC().Add(-types.RouteDedupeWindow-time.Minute))

	second, err := s.SaveRoute(ctx, saveReq(nil, `{"legs":2}`))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	if second.ID == first.ID {
		t.Error("save outside the dedupe window updated the old row")
	}
}

func TestSaveRouteDedupeIsPerUser(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	a := types.NewUUID()
	b := types.NewUUID()

	first, err := s.SaveRoute(ctx, saveReq(&a, `{"legs":1}`))
	if err != nil {
		t.Fatalf("save for a: %v", err)
	}

	second, err := s.SaveRoute(ctx, saveReq(&b, `{"legs":1}`))
	if err != nil {
		t.Fatalf("save for b: %v", err)
	}

	if second.ID == first.ID {
		t.Error("one user's save replaced another user's row")
	}
}

func TestSearchRouteToleranceAndWindow(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	saved, err := s.SaveRoute(ctx, saveReq(nil, `{"legs":1}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	search := func(offset float64) (*types.Route, error) {
		return s.SearchRoute(ctx, types.RouteSearchRequest{
			StartLat: f64(37.4979 + offset),
			StartLng: f64(127.0276),
			EndLat:   f64(37.5547),
			EndLng:   f64(126.9707),
		})
	}

	t.Run("nearby coordinates hit", func(t *testing.T) {
		got, err := search(0.0005)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if got == nil || got.ID != saved.ID {
			t.Errorf("search within tolerance missed, got %+v", got)
		}
	})

	t.Run("far coordinates miss", func(t *testing.T) {
		got, err := search(0.01)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if got != nil {
			t.Errorf("search outside tolerance hit row %d", got.ID)
		}
	})

	t.Run("stale entries miss", func(t *testing.T) {
		backdate(t, s, "route_cache", "created_at", saved.ID,
			time.Now().UTC().Add(-types.RouteSearchWindow-time.Minute))

		got, err := search(0)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if got != nil {
			t.Errorf("search returned an entry older than the window")
		}
	})
}

func TestRecentRoutesFiltersByUser(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	a := types.NewUUID()
	b := types.NewUUID()

	reqA := saveReq(&a, `{"legs":1}`)
	if _, err := s.SaveRoute(ctx, reqA); err != nil {
		t.Fatalf("save a: %v", err)
	}

	reqB := saveReq(&b, `{"legs":1}`)
	reqB.EndLat = f64(37.6) // different trip, avoids any dedupe thinking
	if _, err := s.SaveRoute(ctx, reqB); err != nil {
		t.Fatalf("save b: %v", err)
	}

	all, err := s.RecentRoutes(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("recent all = %d routes, want 2", len(all))
	}

	mine, err := s.RecentRoutes(ctx, a, 10)
	if err != nil {
		t.Fatalf("recent mine: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("recent mine = %d routes, want 1", len(mine))
	}
	if mine[0].UserUUID == nil || *mine[0].UserUUID != a {
		t.Errorf("filtered list contains someone else's route")
	}
}

func TestUserRouteStats(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()
	user := types.NewUUID()

	t.Run("empty user", func(t *testing.T) {
		stats, err := s.UserRouteStats(ctx, user)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.TotalRoutes != 0 || stats.FirstSearch != nil || stats.LastSearch != nil {
			t.Errorf("empty stats = %+v, want zeroes and nils", stats)
		}
	})

	first, err := s.SaveRoute(ctx, saveReq(&user, `{"legs":1}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	backdate(t, s, "route_cache", "created_at", first.ID, time.Now().UTC().Add(-2*time.Hour))

	req := saveReq(&user, `{"legs":2}`)
	req.EndLat = f64(37.6)
	if _, err := s.SaveRoute(ctx, req); err != nil {
		t.Fatalf("save: %v", err)
	}

	stats, err := s.UserRouteStats(ctx, user)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRoutes != 2 {
		t.Errorf("total = %d, want 2", stats.TotalRoutes)
	}
	if stats.FirstSearch == nil || stats.LastSearch == nil {
		t.Fatalf("first/last = %v/%v, want both set", stats.FirstSearch, stats.LastSearch)
	}
	if !stats.FirstSearch.Before(*stats.LastSearch) {
		t.Errorf("first %v not before last %v", stats.FirstSearch, stats.LastSearch)
	}
}

func TestDeleteRoute(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	r, err := s.SaveRoute(ctx, saveReq(nil, `{"legs":1}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.DeleteRoute(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteRoute(ctx, r.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestCleanupOldRoutes(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	old, err := s.SaveRoute(ctx, saveReq(nil, `{"legs":1}`))
	if err != nil {
		t.Fatalf("save old: %v", err)
	}
	backdate(t, s, "route_cache", "created_at", old.ID,
		time.Now().UTC().Add(-8*24*time.Hour))

	req := saveReq(nil, `{"legs":2}`)
	req.EndLat = f64(37.6)
	fresh, err := s.SaveRoute(ctx, req)
	if err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	count, err := s.CleanupOldRoutes(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if count != 1 {
		t.Errorf("purged = %d, want 1", count)
	}

	routes, err := s.RecentRoutes(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(routes) != 1 || routes[0].ID != fresh.ID {
		t.Errorf("survivors = %+v, want only the fresh route", routes)
	}
}
