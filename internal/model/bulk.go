package model

import "errors"

// BulkItemResult is the tagged outcome for one item of a bulk operation.
// Per-item failures never abort the batch; they accumulate here instead.
type BulkItemResult struct {
	Filename string `json:"filename"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// BulkResult summarizes a bulk operation. The batch as a whole is not
// atomic: each item commits or rolls back on its own.
type BulkResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []BulkItemResult `json:"items"`
}

// BulkDeleteRequest is the request body for bulk image deletion.
type BulkDeleteRequest struct {
	Filenames []string `json:"filenames"`
}

// BulkDeviceUpdate replaces the assignment set of one image.
type BulkDeviceUpdate struct {
	Filename  string   `json:"filename"`
	DeviceIDs []string `json:"device_ids"`
}

// BulkDeviceUpdateRequest is the request body for bulk assignment updates.
type BulkDeviceUpdateRequest struct {
	Items []BulkDeviceUpdate `json:"items"`
}

var (
	// ErrTooManyItems is returned when a bulk request exceeds the item cap
	ErrTooManyItems = errors.New("too many items in bulk request")
)
