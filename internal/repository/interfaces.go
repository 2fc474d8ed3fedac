package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"framesync/internal/model"
)

type UserRepository interface {
	// Upsert creates the user or updates its name, refreshing updated_at.
	Upsert(ctx context.Context, ip, name string) (*model.User, error)
	GetByIP(ctx context.Context, ip string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	// ListWithImageCounts returns every user with its uploaded-image count.
	ListWithImageCounts(ctx context.Context) ([]model.UserSummary, error)
}

type DeviceRepository interface {
	// Upsert registers a device or updates an existing one. registered_at is
	// preserved on update; last_seen_at is refreshed either way. Returns
	// whether the device was newly created.
	Upsert(ctx context.Context, device *model.Device) (bool, error)
	GetByID(ctx context.Context, deviceID string) (*model.Device, error)
	List(ctx context.Context) ([]model.Device, error)
	Delete(ctx context.Context, deviceID string) (bool, error)
	// TouchLastSeen refreshes last_seen_at; unknown id -> ErrDeviceNotFound.
	TouchLastSeen(ctx context.Context, deviceID string) error
}

type ImageRepository interface {
	// Create inserts a catalogue row; duplicate filename -> ErrDuplicateImage.
	Create(ctx context.Context, tx *sqlx.Tx, img *model.Image) error
	GetByFilename(ctx context.Context, filename string) (*model.Image, error)
	// List orders by upload_time descending, or by EXIF date_taken descending
	// with date-taken-less rows interleaved via their upload_time.
	List(ctx context.Context, sortBy string) ([]model.Image, error)
	// Delete removes the row and, via cascade, its assignments. Returns
	// whether a row existed.
	Delete(ctx context.Context, tx *sqlx.Tx, filename string) (bool, error)

	// ReplaceDevices atomically swaps the full assignment set of an image.
	ReplaceDevices(ctx context.Context, tx *sqlx.Tx, filename string, deviceIDs []string) error
	// AssignDevice adds one assignment; already-assigned is a silent no-op.
	AssignDevice(ctx context.Context, filename, deviceID string) error
	UnassignDevice(ctx context.Context, filename, deviceID string) (bool, error)
	// GetDevices returns the assigned device ids ordered by assignment time.
	GetDevices(ctx context.Context, filename string) ([]string, error)
	// GetForDevice returns a device's permitted images, upload_time descending.
	GetForDevice(ctx context.Context, deviceID string) ([]model.Image, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// ListPending returns a device's notifications oldest-first.
	ListPending(ctx context.Context, deviceID string) ([]model.Notification, error)
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteOlderThan removes every notification created before the cutoff,
	// acknowledged or not, and returns the number removed.
	DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

type StatsRepository interface {
	Stats(ctx context.Context) (*model.Stats, error)
}
