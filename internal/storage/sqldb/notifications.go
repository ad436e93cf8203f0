package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
)

func scanNotification(row rowScanner) (types.Notification, error) {
	var (
		n        types.Notification
		notiType sql.NullString
		itemID   sql.NullInt64
		itemType sql.NullString
	)

	err := row.Scan(
		&n.ID, &n.UserUUID, &n.Title, &n.Content,
		&notiType, &itemID, &itemType, &n.IsRead, &n.CreatedAt,
	)
	if err != nil {
		return types.Notification{}, err
	}

	n.Type = strPtr(notiType)
	n.RelatedItemID = int64Ptr(itemID)
	n.RelatedItemType = strPtr(itemType)

	return n, nil
}

const notificationCols = "id, user_uuid, title, content, type, related_item_id, related_item_type, is_read, created_at"

func (s *DB) CreateNotification(ctx context.Context, n types.NotificationCreate) (types.Notification, error) {
	now := s.now()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(user_uuid, title, content, type, related_item_id, related_item_type, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		n.UserUUID, n.Title, n.Content, n.Type, n.RelatedItemID, n.RelatedItemType, now,
	)
	if err != nil {
		return types.Notification{}, fmt.Errorf("CreateNotification: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.Notification{}, fmt.Errorf("CreateNotification: last insert id: %w", err)
	}

	return types.Notification{
		ID:              id,
		UserUUID:        n.UserUUID,
		Title:           n.Title,
		Content:         n.Content,
		Type:            n.Type,
		RelatedItemID:   n.RelatedItemID,
		RelatedItemType: n.RelatedItemType,
		CreatedAt:       now,
	}, nil
}

// ListNotifications returns the user's inbox newest-first.
func (s *DB) ListNotifications(ctx context.Context, userUUID string, unreadOnly bool, limit int) ([]types.Notification, error) {
	query := "SELECT " + notificationCols + " FROM notifications WHERE user_uuid = ?"
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, userUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListNotifications: query: %w", err)
	}
	defer rows.Close()

	notifications := make([]types.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("ListNotifications: scan row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListNotifications: rows iteration: %w", err)
	}

	return notifications, nil
}

func (s *DB) MarkNotificationRead(ctx context.Context, id int64) (types.Notification, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		return types.Notification{}, fmt.Errorf("MarkNotificationRead: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.Notification{}, fmt.Errorf("MarkNotificationRead: rows affected: %w", err)
	}
	if affected == 0 {
		return types.Notification{}, fmt.Errorf("MarkNotificationRead: %w", storage.ErrNotFound)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+notificationCols+" FROM notifications WHERE id = ? LIMIT 1", id,
	)

	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Notification{}, fmt.Errorf("MarkNotificationRead: %w", storage.ErrNotFound)
		}
		return types.Notification{}, fmt.Errorf("MarkNotificationRead: scan: %w", err)
	}

	return n, nil
}

// MarkAllNotificationsRead flips every unread notice and reports how
// many there were.
func (s *DB) MarkAllNotificationsRead(ctx context.Context, userUUID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE user_uuid = ? AND is_read = 0",
		userUUID,
	)
	if err != nil {
		return 0, fmt.Errorf("MarkAllNotificationsRead: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("MarkAllNotificationsRead: rows affected: %w", err)
	}

	return affected, nil
}

func (s *DB) DeleteNotification(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteNotification: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteNotification: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeleteNotification: %w", storage.ErrNotFound)
	}

	return nil
}
