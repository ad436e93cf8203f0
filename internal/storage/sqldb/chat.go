package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
)

func scanChatMessage(row rowScanner) (types.ChatMessage, error) {
	var (
		m          types.ChatMessage
		intent     sql.NullString
		confidence sql.NullFloat64
	)

	err := row.Scan(&m.ID, &m.SessionID, &m.Content, &m.IsUser, &intent, &confidence, &m.CreatedAt)
	if err != nil {
		return types.ChatMessage{}, err
	}

	m.Intent = strPtr(intent)
	m.Confidence = f64Ptr(confidence)

	return m, nil
}

const chatMessageCols = "id, session_id, content, is_user, intent, confidence, created_at"

// CreateChatSession opens a new conversation for the user.
func (s *DB) CreateChatSession(ctx context.Context, userUUID, title, category string) (types.ChatSession, error) {
	now := s.now()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_uuid, title, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		userUUID, title, category, now, now,
	)
	if err != nil {
		return types.ChatSession{}, fmt.Errorf("CreateChatSession: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.ChatSession{}, fmt.Errorf("CreateChatSession: last insert id: %w", err)
	}

	return types.ChatSession{
		ID:        id,
		UserUUID:  userUUID,
		Title:     title,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *DB) GetChatSession(ctx context.Context, id int64) (types.ChatSession, error) {
	var se types.ChatSession

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_uuid, title, category, created_at, updated_at
		FROM sessions
		WHERE id = ? LIMIT 1`,
		id,
	).Scan(&se.ID, &se.UserUUID, &se.Title, &se.Category, &se.CreatedAt, &se.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ChatSession{}, fmt.Errorf("GetChatSession: %w", storage.ErrNotFound)
		}
		return types.ChatSession{}, fmt.Errorf("GetChatSession: scan: %w", err)
	}

	return se, nil
}

// ListChatSessions returns the user's conversations, most recently
// active first.
func (s *DB) ListChatSessions(ctx context.Context, userUUID string) ([]types.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_uuid, title, category, created_at, updated_at
		FROM sessions
		WHERE user_uuid = ?
		ORDER BY updated_at DESC, id DESC`,
		userUUID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListChatSessions: query: %w", err)
	}
	defer rows.Close()

	sessions := make([]types.ChatSession, 0)
	for rows.Next() {
		var se types.ChatSession
		if err := rows.Scan(&se.ID, &se.UserUUID, &se.Title, &se.Category, &se.CreatedAt, &se.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListChatSessions: scan row: %w", err)
		}
		sessions = append(sessions, se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListChatSessions: rows iteration: %w", err)
	}

	return sessions, nil
}

// ListSessionMessages returns the full transcript oldest-first.
func (s *DB) ListSessionMessages(ctx context.Context, sessionID int64) ([]types.ChatMessage, error) {
	// Distinguish "unknown session" from "session with no messages".
	if _, err := s.GetChatSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("ListSessionMessages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chatMessageCols+" FROM messages WHERE session_id = ? ORDER BY id ASC",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListSessionMessages: query: %w", err)
	}
	defer rows.Close()

	messages := make([]types.ChatMessage, 0)
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("ListSessionMessages: scan row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSessionMessages: rows iteration: %w", err)
	}

	return messages, nil
}

// RecentMessages returns the session's last limit messages in
// chronological order, ready to replay as conversation history.
func (s *DB) RecentMessages(ctx context.Context, sessionID int64, limit int) ([]types.ChatMessage, error) {
	// Newest-first with a LIMIT picks the tail of the conversation;
	// the slice is then reversed so the caller sees it oldest-first.
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chatMessageCols+" FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?",
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("RecentMessages: query: %w", err)
	}
	defer rows.Close()

	messages := make([]types.ChatMessage, 0, limit)
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("RecentMessages: scan row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RecentMessages: rows iteration: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// AddChatMessage appends a message and bumps the session's updated_at in
// one transaction, so a session can never show activity it does not
// contain (or contain a message it does not show).
func (s *DB) AddChatMessage(ctx context.Context, sessionID int64, content string, isUser bool, intent *string, confidence *float64) (types.ChatMessage, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.ChatMessage{}, fmt.Errorf("AddChatMessage: begin tx: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	// The bump doubles as the existence check: zero rows matched means
	// there is no such session.
	res, err := tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?",
		now, sessionID,
	)
	if err != nil {
		return types.ChatMessage{}, fmt.Errorf("AddChatMessage: bump session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.ChatMessage{}, fmt.Errorf("AddChatMessage: rows affected: %w", err)
	}
	if affected == 0 {
		return types.ChatMessage{}, fmt.Errorf("AddChatMessage: %w", storage.ErrNotFound)
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, content, is_user, intent, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, content, isUser, intent, confidence, now,
	)
	if err != nil {
		return types.ChatMessage{}, fmt.Errorf("AddChatMessage: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.ChatMessage{}, fmt.Errorf("AddChatMessage: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.ChatMessage{}, fmt.Errorf("AddChatMessage: commit: %w", err)
	}

	return types.ChatMessage{
		ID:         id,
		SessionID:  sessionID,
		Content:    content,
		IsUser:     isUser,
		Intent:     intent,
		Confidence: confidence,
		CreatedAt:  now,
	}, nil
}

// DeleteChatSession removes the session; the schema cascades the delete
// to its messages.
func (s *DB) DeleteChatSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteChatSession: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteChatSession: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeleteChatSession: %w", storage.ErrNotFound)
	}

	return nil
}
