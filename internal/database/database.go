package database

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

// Connect opens the SQLite database at path and applies the schema.
//
// poolSize bounds the connection pool; with WAL journaling readers do not
// block each other and writers queue on the busy timeout, so a pool sized
// to the expected request concurrency keeps unrelated requests from
// waiting on connection acquisition.
func Connect(path string, poolSize int) (*sqlx.DB, error) {
	dsn := "file:" + path + "?" + (url.Values{
		"_pragma": []string{
			"foreign_keys(1)",
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}).Encode()

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if poolSize <= 0 {
		poolSize = 1
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	db.SetConnMaxLifetime(time.Hour)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Println("Connected to database:", path)
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	ip_address TEXT NOT NULL PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS devices (
	device_id     TEXT NOT NULL PRIMARY KEY,
	name          TEXT NOT NULL,
	device_type   TEXT NOT NULL DEFAULT 'display',
	metadata_json TEXT NOT NULL DEFAULT '{}',
	registered_at DATETIME NOT NULL DEFAULT (datetime('now')),
	last_seen_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS images (
	id          INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	filename    TEXT NOT NULL UNIQUE,
	uploader_ip TEXT NOT NULL REFERENCES users(ip_address),
	file_size   INTEGER NOT NULL DEFAULT 0,
	mime_type   TEXT NOT NULL DEFAULT '',
	width       INTEGER NOT NULL DEFAULT 0,
	height      INTEGER NOT NULL DEFAULT 0,
	upload_time DATETIME NOT NULL DEFAULT (datetime('now')),

	date_taken    TEXT,
	camera_make   TEXT,
	camera_model  TEXT,
	gps_latitude  REAL,
	gps_longitude REAL,
	gps_altitude  REAL,
	orientation   INTEGER,
	exif_json     TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS image_device_assignments (
	image_id    INTEGER NOT NULL REFERENCES images(id) ON DELETE CASCADE,
	device_id   TEXT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
	assigned_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (image_id, device_id)
);

CREATE TABLE IF NOT EXISTS notifications (
	id             TEXT NOT NULL PRIMARY KEY,
	device_id      TEXT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
	action         TEXT NOT NULL,
	image_filename TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_images_upload_time ON images(upload_time);
CREATE INDEX IF NOT EXISTS idx_images_date_taken ON images(date_taken);
CREATE INDEX IF NOT EXISTS idx_images_uploader ON images(uploader_ip);
CREATE INDEX IF NOT EXISTS idx_assignments_device ON image_device_assignments(device_id);
CREATE INDEX IF NOT EXISTS idx_notifications_device ON notifications(device_id, created_at);
`

func createTables(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}
