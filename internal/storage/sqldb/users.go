package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
)

// ─────────────────────────────────────────────────────────────────────────────
// CreateUser mints a UUID and inserts the user row.
//
// WHY THE RETRY LOOP:
// The uuid column is UNIQUE and the value is random. A collision in a
// 2^122 space will in practice never happen, but the cost of handling
// it is one small loop: on a duplicate-key error we mint a fresh UUID
// and try again instead of surfacing a 500 to a brand-new user.
// ─────────────────────────────────────────────────────────────────────────────
func (s *DB) CreateUser(ctx context.Context, nickname string, prepTime int) (types.User, error) {
	now := s.now()

	for attempt := 0; attempt < 3; attempt++ {
		id := types.NewUUID()

		res, err := s.db.ExecContext(ctx, `
			INSERT INTO users (uuid, nickname, prep_time_seconds, created_at, last_active, is_deleted)
			VALUES (?, ?, ?, ?, ?, 0)`,
			id, nickname, prepTime, now, now,
		)
		if err != nil {
			if isDuplicate(err) {
				continue
			}
			return types.User{}, fmt.Errorf("CreateUser: insert: %w", err)
		}

		rowID, err := res.LastInsertId()
		if err != nil {
			return types.User{}, fmt.Errorf("CreateUser: last insert id: %w", err)
		}

		return types.User{
			ID:         rowID,
			UUID:       id,
			Nickname:   nickname,
			PrepTime:   prepTime,
			CreatedAt:  now,
			LastActive: now,
		}, nil
	}

	return types.User{}, errors.New("CreateUser: repeated uuid collisions")
}

// ─────────────────────────────────────────────────────────────────────────────
// GetUserByUUID fetches one user row.
//
// Soft-deleted rows are filtered in the WHERE clause, so to the rest of
// the application a deleted user simply does not exist. Every user
// lookup in this file carries the same "AND is_deleted = 0" guard.
// ─────────────────────────────────────────────────────────────────────────────
func (s *DB) GetUserByUUID(ctx context.Context, uuid string) (types.User, error) {
	var u types.User

	err := s.db.QueryRowContext(ctx, `
		SELECT id, uuid, nickname, prep_time_seconds, created_at, last_active, is_deleted
		FROM users
		WHERE uuid = ? AND is_deleted = 0
		LIMIT 1`,
		uuid,
	).Scan(&u.ID, &u.UUID, &u.Nickname, &u.PrepTime, &u.CreatedAt, &u.LastActive, &u.IsDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, fmt.Errorf("GetUserByUUID: %w", storage.ErrNotFound)
		}
		return types.User{}, fmt.Errorf("GetUserByUUID: scan: %w", err)
	}

	return u, nil
}

// UpdateUser applies the non-nil fields of upd. Even an empty update
// bumps last_active: the call itself is user activity.
func (s *DB) UpdateUser(ctx context.Context, uuid string, upd types.UserUpdate) (types.User, error) {
	now := s.now()

	// Build the SET clause dynamically from the fields that were sent.
	// Placeholders keep the values out of the SQL text, same as always.
	sets := []string{"last_active = ?"}
	args := []any{now}

	if upd.Nickname != nil {
		sets = append(sets, "nickname = ?")
		args = append(args, *upd.Nickname)
	}
	if upd.PrepTime != nil {
		sets = append(sets, "prep_time_seconds = ?")
		args = append(args, *upd.PrepTime)
	}
	args = append(args, uuid)

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE uuid = ? AND is_deleted = 0",
		args...,
	)
	if err != nil {
		return types.User{}, fmt.Errorf("UpdateUser: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.User{}, fmt.Errorf("UpdateUser: rows affected: %w", err)
	}
	if affected == 0 {
		return types.User{}, fmt.Errorf("UpdateUser: %w", storage.ErrNotFound)
	}

	// Re-fetch so the caller gets exactly what is stored.
	return s.GetUserByUUID(ctx, uuid)
}

// SoftDeleteUser flags the row deleted. Data is retained; the user just
// stops existing as far as the API is concerned.
func (s *DB) SoftDeleteUser(ctx context.Context, uuid string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET is_deleted = 1, last_active = ? WHERE uuid = ? AND is_deleted = 0",
		s.now(), uuid,
	)
	if err != nil {
		return fmt.Errorf("SoftDeleteUser: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SoftDeleteUser: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("SoftDeleteUser: %w", storage.ErrNotFound)
	}

	return nil
}

// TouchLastActive stamps the user's activity clock. The inactivity
// janitor keys off this column.
func (s *DB) TouchLastActive(ctx context.Context, uuid string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_active = ? WHERE uuid = ? AND is_deleted = 0",
		s.now(), uuid,
	)
	if err != nil {
		return fmt.Errorf("TouchLastActive: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("TouchLastActive: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("TouchLastActive: %w", storage.ErrNotFound)
	}

	return nil
}

// GetUserStats counts the user's sessions and messages.
func (s *DB) GetUserStats(ctx context.Context, uuid string) (types.UserStats, error) {
	u, err := s.GetUserByUUID(ctx, uuid)
	if err != nil {
		return types.UserStats{}, fmt.Errorf("GetUserStats: %w", err)
	}

	stats := types.UserStats{
		UUID:       u.UUID,
		Nickname:   u.Nickname,
		LastActive: u.LastActive,
		CreatedAt:  u.CreatedAt,
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE user_uuid = ?", uuid,
	).Scan(&stats.TotalSessions)
	if err != nil {
		return types.UserStats{}, fmt.Errorf("GetUserStats: count sessions: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN sessions se ON se.id = m.session_id
		WHERE se.user_uuid = ?`,
		uuid,
	).Scan(&stats.TotalMessages)
	if err != nil {
		return types.UserStats{}, fmt.Errorf("GetUserStats: count messages: %w", err)
	}

	return stats, nil
}

// CleanupInactiveUsers soft-deletes everyone whose last activity is
// older than the cutoff. Returns the number of users flagged.
func (s *DB) CleanupInactiveUsers(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET is_deleted = 1 WHERE is_deleted = 0 AND last_active < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("CleanupInactiveUsers: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("CleanupInactiveUsers: rows affected: %w", err)
	}

	return affected, nil
}
