package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"framesync/internal/database"
	"framesync/internal/model"
)

// newTestDB opens a throwaway SQLite database in a temp dir. Repository
// tests run against the real schema, not mocks: SQLite needs no server,
// so there is nothing to gain from faking it.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"), 2)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func seedUser(t *testing.T, db *sqlx.DB, ip string) {
	t.Helper()
	if _, err := NewUserRepository(db).Upsert(context.Background(), ip, "tester"); err != nil {
		t.Fatalf("failed to seed user %s: %v", ip, err)
	}
}

func seedDevice(t *testing.T, db *sqlx.DB, deviceID string) {
	t.Helper()
	device := &model.Device{
		DeviceID:   deviceID,
		Name:       deviceID,
		DeviceType: model.DefaultDeviceType,
	}
	if _, err := NewDeviceRepository(db).Upsert(context.Background(), device); err != nil {
		t.Fatalf("failed to seed device %s: %v", deviceID, err)
	}
}

// seedImage registers a minimal catalogue row and returns it.
func seedImage(t *testing.T, db *sqlx.DB, filename, uploaderIP string, uploadTime time.Time) *model.Image {
	t.Helper()

	img := &model.Image{
		Filename:   filename,
		UploaderIP: uploaderIP,
		FileSize:   1024,
		MimeType:   "image/jpeg",
		Width:      800,
		Height:     600,
		UploadTime: uploadTime,
	}

	repo := NewImageRepository(db)
	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		return repo.Create(context.Background(), tx, img)
	})
	if err != nil {
		t.Fatalf("failed to seed image %s: %v", filename, err)
	}

	return img
}
