package model

import (
	"errors"
	"time"
)

// DefaultDeviceType is used when a registration omits the device type.
const DefaultDeviceType = "display"

// Device represents a registered display device.
// RegisteredAt is set once at first registration and never changes;
// LastSeenAt is refreshed on every heartbeat and content fetch.
type Device struct {
	DeviceID     string            `db:"device_id" json:"device_id"`
	Name         string            `db:"name" json:"name"`
	DeviceType   string            `db:"device_type" json:"device_type"`
	Metadata     map[string]string `db:"-" json:"metadata"`
	MetadataJSON string            `db:"metadata_json" json:"-"`
	RegisteredAt time.Time         `db:"registered_at" json:"registered_at"`
	LastSeenAt   time.Time         `db:"last_seen_at" json:"last_seen_at"`
}

// RegisterDeviceRequest is the request body for device registration.
type RegisterDeviceRequest struct {
	DeviceID   string            `json:"device_id"`
	Name       string            `json:"name"`
	DeviceType string            `json:"device_type"`
	Metadata   map[string]string `json:"metadata"`
}

var (
	// ErrDeviceNotFound is returned when a device id is not registered
	ErrDeviceNotFound = errors.New("device not found")
)
