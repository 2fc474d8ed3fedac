package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"framesync/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create inserts a new notification into a device's mailbox.
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, device_id, action, image_filename)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, n.ID, n.DeviceID, n.Action, n.ImageFilename)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return model.ErrDeviceNotFound
		}
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListPending returns pending notifications oldest-first. rowid breaks ties
// between rows created within the same second.
func (r *notificationRepository) ListPending(ctx context.Context, deviceID string) ([]model.Notification, error) {
	query := `
		SELECT id, device_id, action, image_filename, created_at
		FROM notifications
		WHERE device_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	var notifications []model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, deviceID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteOlderThan bounds queue growth from devices that stopped polling:
// anything older than the cutoff is removed regardless of state.
func (r *notificationRepository) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	modifier := fmt.Sprintf("-%d seconds", int64(maxAge.Seconds()))
	query := `DELETE FROM notifications WHERE created_at < datetime('now', ?)`

	result, err := r.db.ExecContext(ctx, query, modifier)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep notifications: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
