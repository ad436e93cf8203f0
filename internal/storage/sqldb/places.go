package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
)

func scanPlace(row rowScanner) (types.FavoritePlace, error) {
	var (
		p       types.FavoritePlace
		address sql.NullString
	)

	err := row.Scan(&p.ID, &p.UserUUID, &p.Alias, &address, &p.Latitude, &p.Longitude, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return types.FavoritePlace{}, err
	}

	p.Address = strPtr(address)

	return p, nil
}

const placeCols = "id, user_uuid, alias, address, latitude, longitude, created_at, updated_at"

func (s *DB) CreatePlace(ctx context.Context, p types.PlaceCreate) (types.FavoritePlace, error) {
	now := s.now()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO favorite_places (user_uuid, alias, address, latitude, longitude, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserUUID, p.Alias, p.Address, *p.Latitude, *p.Longitude, now, now,
	)
	if err != nil {
		return types.FavoritePlace{}, fmt.Errorf("CreatePlace: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.FavoritePlace{}, fmt.Errorf("CreatePlace: last insert id: %w", err)
	}

	return types.FavoritePlace{
		ID:        id,
		UserUUID:  p.UserUUID,
		Alias:     p.Alias,
		Address:   p.Address,
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *DB) getPlace(ctx context.Context, id int64) (types.FavoritePlace, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+placeCols+" FROM favorite_places WHERE id = ? LIMIT 1", id,
	)

	p, err := scanPlace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.FavoritePlace{}, fmt.Errorf("getPlace: %w", storage.ErrNotFound)
		}
		return types.FavoritePlace{}, fmt.Errorf("getPlace: scan: %w", err)
	}

	return p, nil
}

// ListPlaces returns the user's saved places in alias order, so "home"
// and "work" land in stable positions in the app.
func (s *DB) ListPlaces(ctx context.Context, userUUID string) ([]types.FavoritePlace, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+placeCols+" FROM favorite_places WHERE user_uuid = ? ORDER BY alias ASC, id ASC",
		userUUID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPlaces: query: %w", err)
	}
	defer rows.Close()

	places := make([]types.FavoritePlace, 0)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPlaces: scan row: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPlaces: rows iteration: %w", err)
	}

	return places, nil
}

func (s *DB) UpdatePlace(ctx context.Context, id int64, upd types.PlaceUpdate) (types.FavoritePlace, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.now()}

	if upd.Alias != nil {
		sets = append(sets, "alias = ?")
		args = append(args, *upd.Alias)
	}
	if upd.Address != nil {
		sets = append(sets, "address = ?")
		args = append(args, *upd.Address)
	}
	if upd.Latitude != nil {
		sets = append(sets, "latitude = ?")
		args = append(args, *upd.Latitude)
	}
	if upd.Longitude != nil {
		sets = append(sets, "longitude = ?")
		args = append(args, *upd.Longitude)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE favorite_places SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return types.FavoritePlace{}, fmt.Errorf("UpdatePlace: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.FavoritePlace{}, fmt.Errorf("UpdatePlace: rows affected: %w", err)
	}
	if affected == 0 {
		return types.FavoritePlace{}, fmt.Errorf("UpdatePlace: %w", storage.ErrNotFound)
	}

	return s.getPlace(ctx, id)
}

func (s *DB) DeletePlace(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM favorite_places WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeletePlace: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeletePlace: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeletePlace: %w", storage.ErrNotFound)
	}

	return nil
}
