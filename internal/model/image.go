package model

import (
	"errors"
	"time"
)

// Sort orders accepted by image listing.
const (
	SortByUploadTime = "upload_time"
	SortByDateTaken  = "date_taken"
)

// Image is a catalogue entry for one uploaded file. The filename is the
// stable identity: it is unique, never reused, and never renamed.
// EXIF columns are independently nullable; their absence never blocks
// creation of the row.
type Image struct {
	ID         int64     `db:"id" json:"-"`
	Filename   string    `db:"filename" json:"filename"`
	UploaderIP string    `db:"uploader_ip" json:"uploader_ip"`
	FileSize   int64     `db:"file_size" json:"size"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	Width      int       `db:"width" json:"width"`
	Height     int       `db:"height" json:"height"`
	UploadTime time.Time `db:"upload_time" json:"uploaded"`

	DateTaken    *string  `db:"date_taken" json:"date_taken,omitempty"`
	CameraMake   *string  `db:"camera_make" json:"camera_make,omitempty"`
	CameraModel  *string  `db:"camera_model" json:"camera_model,omitempty"`
	GPSLatitude  *float64 `db:"gps_latitude" json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `db:"gps_longitude" json:"gps_longitude,omitempty"`
	GPSAltitude  *float64 `db:"gps_altitude" json:"gps_altitude,omitempty"`
	Orientation  *int     `db:"orientation" json:"orientation,omitempty"`
	ExifJSON     string   `db:"exif_json" json:"-"`

	// Joined field for display
	UploaderName string `db:"uploader_name" json:"uploader_name,omitempty"`
}

// ImageFilters narrows a device's visible image set.
type ImageFilters struct {
	// Search is matched case-insensitively against the filename.
	Search string
	// UploadedFrom/UploadedTo bound the upload date (inclusive; zero values
	// mean unbounded).
	UploadedFrom time.Time
	UploadedTo   time.Time
	// UploaderIP restricts to a single uploader.
	UploaderIP string
}

// Error codes surfaced in HTTP error payloads
const (
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodeInvalidImage    = "INVALID_IMAGE"
	CodeDuplicateImage  = "DUPLICATE_IMAGE"
)

var (
	// ErrImageNotFound is returned when no catalogue row exists for a filename
	ErrImageNotFound = errors.New("image not found")

	// ErrDuplicateImage is returned when creating an image whose filename exists
	ErrDuplicateImage = errors.New("image filename already exists")

	// ErrInvalidFileType is returned for extensions outside the allow-list
	ErrInvalidFileType = errors.New("file type not allowed")

	// ErrFileTooLarge is returned when an upload exceeds the size ceiling
	ErrFileTooLarge = errors.New("file too large")

	// ErrQuotaExceeded is returned when an upload would exceed the storage quota
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrInvalidImage is returned when the uploaded bytes do not decode
	ErrInvalidImage = errors.New("invalid image data")

	// ErrNoContent is returned when a device has no permitted images
	ErrNoContent = errors.New("no content available for device")

	// ErrDisplayFailed is returned when the hardware renderer fails or times out
	ErrDisplayFailed = errors.New("display failed")
)
