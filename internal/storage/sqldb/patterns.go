package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/daysync/daysync-api/internal/types"
)

// SavePattern records one observation of a usage pattern. A (user, type)
// pair that already exists gets the fresh payload and frequency+1; a new
// pair starts at frequency 1. The same portable transaction shape as
// PutPreference.
func (s *DB) SavePattern(ctx context.Context, p types.PatternSave) (types.UserPattern, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.UserPattern{}, fmt.Errorf("SavePattern: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE user_patterns
		SET pattern_data = ?, frequency = frequency + 1, last_used = ?
		WHERE user_uuid = ? AND pattern_type = ?`,
		[]byte(p.PatternData), now, p.UserUUID, p.PatternType,
	)
	if err != nil {
		return types.UserPattern{}, fmt.Errorf("SavePattern: update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.UserPattern{}, fmt.Errorf("SavePattern: rows affected: %w", err)
	}

	if affected == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_patterns (user_uuid, pattern_type, pattern_data, frequency, last_used)
			VALUES (?, ?, ?, 1, ?)`,
			p.UserUUID, p.PatternType, []byte(p.PatternData), now,
		)
		if err != nil {
			if isDuplicate(err) {
				_, err = tx.ExecContext(ctx, `
					UPDATE user_patterns
					SET pattern_data = ?, frequency = frequency + 1, last_used = ?
					WHERE user_uuid = ? AND pattern_type = ?`,
					[]byte(p.PatternData), now, p.UserUUID, p.PatternType,
				)
			}
			if err != nil {
				return types.UserPattern{}, fmt.Errorf("SavePattern: insert: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return types.UserPattern{}, fmt.Errorf("SavePattern: commit: %w", err)
	}

	return s.getPattern(ctx, p.UserUUID, p.PatternType)
}

func (s *DB) getPattern(ctx context.Context, userUUID, patternType string) (types.UserPattern, error) {
	var (
		p    types.UserPattern
		data []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_uuid, pattern_type, pattern_data, frequency, last_used
		FROM user_patterns
		WHERE user_uuid = ? AND pattern_type = ?
		LIMIT 1`,
		userUUID, patternType,
	).Scan(&p.ID, &p.UserUUID, &p.PatternType, &data, &p.Frequency, &p.LastUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.UserPattern{}, fmt.Errorf("getPattern: row vanished after upsert: %w", err)
		}
		return types.UserPattern{}, fmt.Errorf("getPattern: scan: %w", err)
	}

	p.PatternData = json.RawMessage(data)

	return p, nil
}

// ListPatterns returns the user's patterns, most frequent first, so the
// assistant checks the strongest habits before the weak ones.
func (s *DB) ListPatterns(ctx context.Context, userUUID, patternType string) ([]types.UserPattern, error) {
	query := `
		SELECT id, user_uuid, pattern_type, pattern_data, frequency, last_used
		FROM user_patterns
		WHERE user_uuid = ?`
	args := []any{userUUID}

	if patternType != "" {
		query += " AND pattern_type = ?"
		args = append(args, patternType)
	}
	query += " ORDER BY frequency DESC, last_used DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListPatterns: query: %w", err)
	}
	defer rows.Close()

	patterns := make([]types.UserPattern, 0)
	for rows.Next() {
		var (
			p    types.UserPattern
			data []byte
		)
		if err := rows.Scan(&p.ID, &p.UserUUID, &p.PatternType, &data, &p.Frequency, &p.LastUsed); err != nil {
			return nil, fmt.Errorf("ListPatterns: scan row: %w", err)
		}
		p.PatternData = json.RawMessage(data)
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPatterns: rows iteration: %w", err)
	}

	return patterns, nil
}
