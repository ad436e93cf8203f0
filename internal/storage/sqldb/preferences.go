package sqldb

import (
	"context"
	"fmt"

	"github.com/daysync/daysync-api/internal/storage"
)

// GetPreferences returns every key/value pair the user has set.
func (s *DB) GetPreferences(ctx context.Context, userUUID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT pref_key, pref_value FROM user_preferences WHERE user_uuid = ?",
		userUUID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetPreferences: query: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("GetPreferences: scan row: %w", err)
		}
		prefs[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetPreferences: rows iteration: %w", err)
	}

	return prefs, nil
}

// PutPreference inserts or replaces one key for the user.
//
// MySQL and SQLite spell native upserts differently (ON DUPLICATE KEY
// vs ON CONFLICT), so this uses the portable form instead: try the
// UPDATE, and INSERT when nothing matched, inside one transaction. The
// UNIQUE (user_uuid, pref_key) constraint backstops a race between two
// first-time writers; the loser's duplicate-key error retries as an
// update.
func (s *DB) PutPreference(ctx context.Context, userUUID, key, value string) error {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("PutPreference: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE user_preferences SET pref_value = ?, updated_at = ? WHERE user_uuid = ? AND pref_key = ?",
		value, now, userUUID, key,
	)
	if err != nil {
		return fmt.Errorf("PutPreference: update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("PutPreference: rows affected: %w", err)
	}

	if affected == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_preferences (user_uuid, pref_key, pref_value, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			userUUID, key, value, now, now,
		)
		if err != nil {
			if isDuplicate(err) {
				// Lost the insert race; the row exists now, update it.
				_, err = tx.ExecContext(ctx,
					"UPDATE user_preferences SET pref_value = ?, updated_at = ? WHERE user_uuid = ? AND pref_key = ?",
					value, now, userUUID, key,
				)
			}
			if err != nil {
				return fmt.Errorf("PutPreference: insert: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("PutPreference: commit: %w", err)
	}

	return nil
}

func (s *DB) DeletePreference(ctx context.Context, userUUID, key string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM user_preferences WHERE user_uuid = ? AND pref_key = ?",
		userUUID, key,
	)
	if err != nil {
		return fmt.Errorf("DeletePreference: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeletePreference: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeletePreference: %w", storage.ErrNotFound)
	}

	return nil
}
