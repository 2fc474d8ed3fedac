package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"framesync/internal/model"
)

type deviceRepository struct {
	db *sqlx.DB
}

func NewDeviceRepository(db *sqlx.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

// Upsert registers a device or updates an existing one. The original
// registration time is immutable: the known-device path deliberately
// leaves registered_at untouched.
func (r *deviceRepository) Upsert(ctx context.Context, device *model.Device) (bool, error) {
	if device.DeviceType == "" {
		device.DeviceType = model.DefaultDeviceType
	}
	metadata := device.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return false, fmt.Errorf("failed to marshal device metadata: %w", err)
	}

	// The insert's row count is the authoritative new-vs-known answer:
	// with concurrent first registrations only one insert lands, so only
	// one caller reports the device as new.
	insert := `
		INSERT INTO devices (device_id, name, device_type, metadata_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, insert, device.DeviceID, device.Name, device.DeviceType, string(metadataJSON))
	if err != nil {
		return false, fmt.Errorf("failed to register device: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	isNew := rows > 0

	if !isNew {
		update := `
			UPDATE devices
			SET name = ?, device_type = ?, metadata_json = ?, last_seen_at = datetime('now')
			WHERE device_id = ?
		`
		if _, err := r.db.ExecContext(ctx, update, device.Name, device.DeviceType, string(metadataJSON), device.DeviceID); err != nil {
			return false, fmt.Errorf("failed to update device: %w", err)
		}
	}

	stored, err := r.GetByID(ctx, device.DeviceID)
	if err != nil {
		return false, err
	}
	*device = *stored

	return isNew, nil
}

func (r *deviceRepository) GetByID(ctx context.Context, deviceID string) (*model.Device, error) {
	query := `
		SELECT device_id, name, device_type, metadata_json, registered_at, last_seen_at
		FROM devices
		WHERE device_id = ?
	`

	var d model.Device
	err := r.db.GetContext(ctx, &d, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	if err := unmarshalMetadata(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deviceRepository) List(ctx context.Context) ([]model.Device, error) {
	query := `
		SELECT device_id, name, device_type, metadata_json, registered_at, last_seen_at
		FROM devices
		ORDER BY registered_at DESC
	`

	var devices []model.Device
	if err := r.db.SelectContext(ctx, &devices, query); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	for i := range devices {
		if err := unmarshalMetadata(&devices[i]); err != nil {
			return nil, err
		}
	}
	return devices, nil
}

// Delete removes a device; assignments and notifications cascade.
func (r *deviceRepository) Delete(ctx context.Context, deviceID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE device_id = ?`, deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to delete device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *deviceRepository) TouchLastSeen(ctx context.Context, deviceID string) error {
	query := `UPDATE devices SET last_seen_at = datetime('now') WHERE device_id = ?`
	result, err := r.db.ExecContext(ctx, query, deviceID)
	if err != nil {
		return fmt.Errorf("failed to update last_seen_at: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrDeviceNotFound
	}
	return nil
}

func unmarshalMetadata(d *model.Device) error {
	if d.MetadataJSON == "" {
		d.Metadata = map[string]string{}
		return nil
	}
	if err := json.Unmarshal([]byte(d.MetadataJSON), &d.Metadata); err != nil {
		return fmt.Errorf("failed to unmarshal device metadata: %w", err)
	}
	return nil
}
