package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"framesync/internal/model"
)

// sqliteTimeLayout is the storage format for timestamps bound from Go. It
// matches what datetime('now') produces, so SQL date functions and string
// comparison work uniformly across all rows.
const sqliteTimeLayout = "2006-01-02 15:04:05"

const imageColumns = `
	id, filename, uploader_ip, file_size, mime_type, width, height, upload_time,
	date_taken, camera_make, camera_model, gps_latitude, gps_longitude,
	gps_altitude, orientation, exif_json
`

type imageRepository struct {
	db *sqlx.DB
}

func NewImageRepository(db *sqlx.DB) ImageRepository {
	return &imageRepository{db: db}
}

// Create inserts a catalogue row. The caller supplies the transaction so
// registration and assignment writes commit as one unit.
func (r *imageRepository) Create(ctx context.Context, tx *sqlx.Tx, img *model.Image) error {
	if img.ExifJSON == "" {
		img.ExifJSON = "{}"
	}
	query := `
		INSERT INTO images (
			filename, uploader_ip, file_size, mime_type, width, height, upload_time,
			date_taken, camera_make, camera_model, gps_latitude, gps_longitude,
			gps_altitude, orientation, exif_json
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		img.Filename,
		img.UploaderIP,
		img.FileSize,
		img.MimeType,
		img.Width,
		img.Height,
		img.UploadTime.UTC().Format(sqliteTimeLayout),
		img.DateTaken,
		img.CameraMake,
		img.CameraModel,
		img.GPSLatitude,
		img.GPSLongitude,
		img.GPSAltitude,
		img.Orientation,
		img.ExifJSON,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return model.ErrDuplicateImage
		}
		return fmt.Errorf("failed to insert image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get image id: %w", err)
	}
	img.ID = id

	return nil
}

func (r *imageRepository) GetByFilename(ctx context.Context, filename string) (*model.Image, error) {
	query := `SELECT` + imageColumns + `FROM images WHERE filename = ?`

	var img model.Image
	err := r.db.GetContext(ctx, &img, query, filename)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return &img, nil
}

// List returns the whole catalogue. With SortByDateTaken, rows missing a
// date_taken fall back to their upload_time inside the same ordering, so
// they interleave with dated rows instead of sinking to the end.
func (r *imageRepository) List(ctx context.Context, sortBy string) ([]model.Image, error) {
	order := `i.upload_time DESC`
	if sortBy == model.SortByDateTaken {
		order = `COALESCE(i.date_taken, strftime('%Y-%m-%dT%H:%M:%S', i.upload_time)) DESC`
	}

	query := `
		SELECT i.id, i.filename, i.uploader_ip, i.file_size, i.mime_type,
		       i.width, i.height, i.upload_time, i.date_taken, i.camera_make,
		       i.camera_model, i.gps_latitude, i.gps_longitude, i.gps_altitude,
		       i.orientation, i.exif_json, u.name AS uploader_name
		FROM images i
		JOIN users u ON u.ip_address = i.uploader_ip
		ORDER BY ` + order

	var images []model.Image
	if err := r.db.SelectContext(ctx, &images, query); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	return images, nil
}

func (r *imageRepository) Delete(ctx context.Context, tx *sqlx.Tx, filename string) (bool, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM images WHERE filename = ?`, filename)
	if err != nil {
		return false, fmt.Errorf("failed to delete image: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ReplaceDevices swaps the full assignment set of an image inside the
// caller's transaction. Unknown device ids fail the foreign key, rolling
// back the whole replacement.
func (r *imageRepository) ReplaceDevices(ctx context.Context, tx *sqlx.Tx, filename string, deviceIDs []string) error {
	imageID, err := imageIDByFilename(ctx, tx, filename)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM image_device_assignments WHERE image_id = ?`, imageID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}

	for _, deviceID := range deviceIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO image_device_assignments (image_id, device_id) VALUES (?, ?)`,
			imageID, deviceID)
		if err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return model.ErrDeviceNotFound
			}
			return fmt.Errorf("failed to assign device %s: %w", deviceID, err)
		}
	}

	return nil
}

// AssignDevice adds one assignment. Re-assigning an already assigned pair is
// the one intentional silent no-op in the store.
func (r *imageRepository) AssignDevice(ctx context.Context, filename, deviceID string) error {
	query := `
		INSERT OR IGNORE INTO image_device_assignments (image_id, device_id)
		SELECT id, ? FROM images WHERE filename = ?
	`
	result, err := r.db.ExecContext(ctx, query, deviceID, filename)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return model.ErrDeviceNotFound
		}
		return fmt.Errorf("failed to assign device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the image is missing or the pair already exists; only the
		// former is an error.
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM images WHERE filename = ?)`, filename); err != nil {
			return fmt.Errorf("failed to check image existence: %w", err)
		}
		if !exists {
			return model.ErrImageNotFound
		}
	}
	return nil
}

func (r *imageRepository) UnassignDevice(ctx context.Context, filename, deviceID string) (bool, error) {
	query := `
		DELETE FROM image_device_assignments
		WHERE image_id = (SELECT id FROM images WHERE filename = ?)
		AND device_id = ?
	`
	result, err := r.db.ExecContext(ctx, query, filename, deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to unassign device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *imageRepository) GetDevices(ctx context.Context, filename string) ([]string, error) {
	if _, err := r.GetByFilename(ctx, filename); err != nil {
		return nil, err
	}

	query := `
		SELECT device_id FROM image_device_assignments
		WHERE image_id = (SELECT id FROM images WHERE filename = ?)
		ORDER BY assigned_at ASC, rowid ASC
	`

	var deviceIDs []string
	if err := r.db.SelectContext(ctx, &deviceIDs, query, filename); err != nil {
		return nil, fmt.Errorf("failed to get image devices: %w", err)
	}

	return deviceIDs, nil
}

func (r *imageRepository) GetForDevice(ctx context.Context, deviceID string) ([]model.Image, error) {
	query := `
		SELECT i.id, i.filename, i.uploader_ip, i.file_size, i.mime_type,
		       i.width, i.height, i.upload_time, i.date_taken, i.camera_make,
		       i.camera_model, i.gps_latitude, i.gps_longitude, i.gps_altitude,
		       i.orientation, i.exif_json, u.name AS uploader_name
		FROM images i
		JOIN image_device_assignments ida ON ida.image_id = i.id
		JOIN users u ON u.ip_address = i.uploader_ip
		WHERE ida.device_id = ?
		ORDER BY i.upload_time DESC
	`

	var images []model.Image
	if err := r.db.SelectContext(ctx, &images, query, deviceID); err != nil {
		return nil, fmt.Errorf("failed to get device images: %w", err)
	}

	return images, nil
}

func imageIDByFilename(ctx context.Context, tx *sqlx.Tx, filename string) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `SELECT id FROM images WHERE filename = ?`, filename)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, model.ErrImageNotFound
		}
		return 0, fmt.Errorf("failed to resolve image id: %w", err)
	}
	return id, nil
}
