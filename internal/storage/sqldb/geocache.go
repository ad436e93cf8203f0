package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/daysync/daysync-api/internal/types"
)

// GetWeather returns the freshest unexpired entry for the coordinates.
// Callers round coordinates before storing AND before looking up, so
// equality is an exact match here. A miss returns (nil, nil).
func (s *DB) GetWeather(ctx context.Context, lat, lng float64) (*types.WeatherEntry, error) {
	var (
		e    types.WeatherEntry
		data []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, latitude, longitude, weather_data, expires_at, created_at
		FROM weather_cache
		WHERE latitude = ? AND longitude = ? AND expires_at > ?
		ORDER BY expires_at DESC
		LIMIT 1`,
		lat, lng, s.now(),
	).Scan(&e.ID, &e.Latitude, &e.Longitude, &data, &e.ExpiresAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetWeather: scan: %w", err)
	}

	e.WeatherData = json.RawMessage(data)

	return &e, nil
}

// PutWeather stores a fresh upstream response for the coordinates,
// replacing whatever was cached for them before. One entry per point
// keeps the table from accumulating a history nobody reads.
func (s *DB) PutWeather(ctx context.Context, lat, lng float64, data json.RawMessage, ttl time.Duration) (types.WeatherEntry, error) {
	now := s.now()
	expires := now.Add(ttl)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.WeatherEntry{}, fmt.Errorf("PutWeather: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"DELETE FROM weather_cache WHERE latitude = ? AND longitude = ?",
		lat, lng,
	)
	if err != nil {
		return types.WeatherEntry{}, fmt.Errorf("PutWeather: clear old: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO weather_cache (latitude, longitude, weather_data, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		lat, lng, []byte(data), expires, now,
	)
	if err != nil {
		return types.WeatherEntry{}, fmt.Errorf("PutWeather: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.WeatherEntry{}, fmt.Errorf("PutWeather: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.WeatherEntry{}, fmt.Errorf("PutWeather: commit: %w", err)
	}

	return types.WeatherEntry{
		ID:          id,
		Latitude:    lat,
		Longitude:   lng,
		WeatherData: data,
		ExpiresAt:   expires,
		CreatedAt:   now,
	}, nil
}

// SavePOI stores a client-pushed place-search result.
func (s *DB) SavePOI(ctx context.Context, p types.POISave, ttl time.Duration) (types.POIEntry, error) {
	now := s.now()
	expires := now.Add(ttl)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO poi_cache (latitude, longitude, query, category, poi_data, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		*p.Latitude, *p.Longitude, p.Query, p.Category, []byte(p.POIData), expires, now,
	)
	if err != nil {
		return types.POIEntry{}, fmt.Errorf("SavePOI: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.POIEntry{}, fmt.Errorf("SavePOI: last insert id: %w", err)
	}

	return types.POIEntry{
		ID:        id,
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		Query:     p.Query,
		Category:  p.Category,
		POIData:   p.POIData,
		ExpiresAt: expires,
		CreatedAt: now,
	}, nil
}

// SearchPOI returns fresh entries near the coordinates, newest first.
// Unlike weather, POI lookups tolerance-match: the app asks from
// wherever the user is standing, not from a rounded grid point.
func (s *DB) SearchPOI(ctx context.Context, lat, lng float64, query, category string, limit int) ([]types.POIEntry, error) {
	const tol = types.CoordTolerance

	q := `
		SELECT id, latitude, longitude, query, category, poi_data, expires_at, created_at
		FROM poi_cache
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		  AND expires_at > ?`
	args := []any{lat - tol, lat + tol, lng - tol, lng + tol, s.now()}

	if query != "" {
		q += " AND query = ?"
		args = append(args, query)
	}
	if category != "" {
		q += " AND category = ?"
		args = append(args, category)
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchPOI: query: %w", err)
	}
	defer rows.Close()

	entries := make([]types.POIEntry, 0)
	for rows.Next() {
		var (
			e    types.POIEntry
			qry  sql.NullString
			cat  sql.NullString
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.Latitude, &e.Longitude, &qry, &cat, &data, &e.ExpiresAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("SearchPOI: scan row: %w", err)
		}
		e.Query = strPtr(qry)
		e.Category = strPtr(cat)
		e.POIData = json.RawMessage(data)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchPOI: rows iteration: %w", err)
	}

	return entries, nil
}

// PurgeExpiredCaches removes expired weather and POI rows. The janitor
// calls this on its cleanup interval.
func (s *DB) PurgeExpiredCaches(ctx context.Context) (int64, error) {
	now := s.now()
	var total int64

	for _, table := range []string{"weather_cache", "poi_cache"} {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE expires_at <= ?", now,
		)
		if err != nil {
			return total, fmt.Errorf("PurgeExpiredCaches: %s: %w", table, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("PurgeExpiredCaches: %s rows affected: %w", table, err)
		}
		total += affected
	}

	return total, nil
}
