package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

// CreateNotification stores a message for a user. A notification for the
// same event is only stored once.
func CreateNotification(ctx context.Context, q Querier, userID int64, eventID, message string, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO notifications (user_id, event_id, message, created_at) VALUES (?, ?, ?, ?)`,
		userID, nullString(eventID), message, at,
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func ListNotifications(ctx context.Context, q Querier, userID int64, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, COALESCE(event_id, ''), message, is_read, created_at
	          FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notes []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.EventID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// MarkNotificationRead marks one of the user's notifications as read.
func MarkNotificationRead(ctx context.Context, q Querier, id, userID int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	ok, err := affected(result, "marking notification read")
	if err != nil {
		return err
	}
	if !ok {
		return model.NewNotFound("notification", id)
	}
	return nil
}
