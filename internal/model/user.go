package model

import (
	"errors"
	"time"
)

// User represents an uploader, keyed by IP address.
type User struct {
	IPAddress string    `db:"ip_address" json:"ip"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserSummary is a user with its uploaded-image count, for listing endpoints.
type UserSummary struct {
	IPAddress  string `db:"ip_address" json:"ip"`
	Name       string `db:"name" json:"name"`
	ImageCount int    `db:"image_count" json:"image_count"`
}

// SetNameRequest is the request body for setting a user's display name.
type SetNameRequest struct {
	Name string `json:"name"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found by IP
	ErrUserNotFound = errors.New("user not found")
)
