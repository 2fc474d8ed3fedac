package model

import (
	"errors"
	"time"
)

// Notification action tags
const (
	ActionDisplay = "display"
	ActionRefresh = "refresh"
)

// Notification is one queued instruction in a device's mailbox.
// Pending notifications drain oldest-first and are removed individually
// on acknowledgment; the TTL sweep removes stale rows regardless of state.
type Notification struct {
	ID            string    `db:"id" json:"id"`
	DeviceID      string    `db:"device_id" json:"device_id"`
	Action        string    `db:"action" json:"action"`
	ImageFilename *string   `db:"image_filename" json:"image_filename,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// EnqueueNotificationRequest is the request body for enqueueing.
type EnqueueNotificationRequest struct {
	DeviceID      string  `json:"device_id"`
	Action        string  `json:"action"`
	ImageFilename *string `json:"image_filename,omitempty"`
}

var (
	// ErrNotificationNotFound is returned when acknowledging an unknown id
	ErrNotificationNotFound = errors.New("notification not found")
)
