package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
)

func scanRoute(row rowScanner) (types.Route, error) {
	var (
		r    types.Route
		user sql.NullString
		data []byte
	)

	err := row.Scan(&r.ID, &user, &r.StartLat, &r.StartLng, &r.EndLat, &r.EndLng, &data, &r.CreatedAt)
	if err != nil {
		return types.Route{}, err
	}

	r.UserUUID = strPtr(user)
	r.RouteData = json.RawMessage(data)

	return r, nil
}

const routeCols = "id, user_uuid, start_lat, start_lng, end_lat, end_lng, route_data, created_at"

// ─────────────────────────────────────────────────────────────────────────────
// SaveRoute stores a transit-route payload, deduplicating repeat saves.
//
// Apps re-search the same commute constantly. If a row with the exact
// same endpoints (and the same owner) already exists inside the dedupe
// window, the new payload replaces it and the row's clock restarts,
// instead of piling up near-identical entries. The lookup and the write
// run in one transaction so two concurrent saves cannot both insert.
//
// Exact float equality is intentional here: a repeat search from the
// app carries bit-identical coordinates. Nearby-but-different points
// are the SEARCH operation's business, which uses a tolerance.
// ─────────────────────────────────────────────────────────────────────────────
func (s *DB) SaveRoute(ctx context.Context, req types.RouteSaveRequest) (types.Route, error) {
	now := s.now()
	windowStart := now.Add(-types.RouteDedupeWindow)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Route{}, fmt.Errorf("SaveRoute: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Anonymous saves only ever replace anonymous rows; a user's rows
	// are only replaced by that same user.
	query := `
		SELECT id FROM route_cache
		WHERE start_lat = ? AND start_lng = ? AND end_lat = ? AND end_lng = ?
		  AND created_at >= ?`
	args := []any{*req.StartLat, *req.StartLng, *req.EndLat, *req.EndLng, windowStart}

	if req.UserUUID != nil {
		query += " AND user_uuid = ?"
		args = append(args, *req.UserUUID)
	} else {
		query += " AND user_uuid IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT 1"

	var existingID int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&existingID)

	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx,
			"UPDATE route_cache SET route_data = ?, created_at = ? WHERE id = ?",
			[]byte(req.RouteData), now, existingID,
		)
		if err != nil {
			return types.Route{}, fmt.Errorf("SaveRoute: update existing: %w", err)
		}

	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO route_cache
				(user_uuid, start_lat, start_lng, end_lat, end_lng, route_data, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			req.UserUUID, *req.StartLat, *req.StartLng, *req.EndLat, *req.EndLng,
			[]byte(req.RouteData), now,
		)
		if err != nil {
			return types.Route{}, fmt.Errorf("SaveRoute: insert: %w", err)
		}

		existingID, err = res.LastInsertId()
		if err != nil {
			return types.Route{}, fmt.Errorf("SaveRoute: last insert id: %w", err)
		}

	default:
		return types.Route{}, fmt.Errorf("SaveRoute: lookup: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Route{}, fmt.Errorf("SaveRoute: commit: %w", err)
	}

	return types.Route{
		ID:        existingID,
		UserUUID:  req.UserUUID,
		StartLat:  *req.StartLat,
		StartLng:  *req.StartLng,
		EndLat:    *req.EndLat,
		EndLng:    *req.EndLng,
		RouteData: req.RouteData,
		CreatedAt: now,
	}, nil
}

// SearchRoute looks for a fresh cached route between roughly the same
// endpoints. "Roughly" is the coordinate tolerance (about 100 m): GPS
// fixes wobble, so an exact-match lookup would practically never hit.
// A miss returns (nil, nil).
func (s *DB) SearchRoute(ctx context.Context, req types.RouteSearchRequest) (*types.Route, error) {
	const tol = types.CoordTolerance
	windowStart := s.now().Add(-types.RouteSearchWindow)

	row := s.db.QueryRowContext(ctx, `
		SELECT `+routeCols+` FROM route_cache
		WHERE start_lat BETWEEN ? AND ? AND start_lng BETWEEN ? AND ?
		  AND end_lat   BETWEEN ? AND ? AND end_lng   BETWEEN ? AND ?
		  AND created_at >= ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		*req.StartLat-tol, *req.StartLat+tol, *req.StartLng-tol, *req.StartLng+tol,
		*req.EndLat-tol, *req.EndLat+tol, *req.EndLng-tol, *req.EndLng+tol,
		windowStart,
	)

	r, err := scanRoute(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("SearchRoute: scan: %w", err)
	}

	return &r, nil
}

// RecentRoutes returns the newest cache entries, optionally one user's.
func (s *DB) RecentRoutes(ctx context.Context, userUUID string, limit int) ([]types.Route, error) {
	query := "SELECT " + routeCols + " FROM route_cache"
	args := []any{}

	if userUUID != "" {
		query += " WHERE user_uuid = ?"
		args = append(args, userUUID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("RecentRoutes: query: %w", err)
	}
	defer rows.Close()

	routes := make([]types.Route, 0)
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("RecentRoutes: scan row: %w", err)
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RecentRoutes: rows iteration: %w", err)
	}

	return routes, nil
}

// UserRouteStats counts a user's cache entries and brackets them in
// time. First/last stay null for users with no entries.
func (s *DB) UserRouteStats(ctx context.Context, userUUID string) (types.RouteStats, error) {
	stats := types.RouteStats{UserUUID: userUUID}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM route_cache WHERE user_uuid = ?", userUUID,
	).Scan(&stats.TotalRoutes)
	if err != nil {
		return types.RouteStats{}, fmt.Errorf("UserRouteStats: count: %w", err)
	}

	if stats.TotalRoutes == 0 {
		return stats, nil
	}

	// Two LIMIT 1 lookups instead of MIN/MAX aggregates: aggregate
	// results lose the column's declared type on SQLite, which breaks
	// scanning into time.Time.
	var first, last time.Time

	err = s.db.QueryRowContext(ctx,
		"SELECT created_at FROM route_cache WHERE user_uuid = ? ORDER BY created_at ASC LIMIT 1",
		userUUID,
	).Scan(&first)
	if err != nil {
		return types.RouteStats{}, fmt.Errorf("UserRouteStats: first: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT created_at FROM route_cache WHERE user_uuid = ? ORDER BY created_at DESC LIMIT 1",
		userUUID,
	).Scan(&last)
	if err != nil {
		return types.RouteStats{}, fmt.Errorf("UserRouteStats: last: %w", err)
	}

	stats.FirstSearch = &first
	stats.LastSearch = &last

	return stats, nil
}

func (s *DB) DeleteRoute(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM route_cache WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteRoute: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteRoute: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeleteRoute: %w", storage.ErrNotFound)
	}

	return nil
}

// CleanupOldRoutes purges entries older than the cutoff.
func (s *DB) CleanupOldRoutes(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)

	res, err := s.db.ExecContext(ctx, "DELETE FROM route_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("CleanupOldRoutes: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("CleanupOldRoutes: rows affected: %w", err)
	}

	return affected, nil
}
