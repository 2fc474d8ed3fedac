package model

// StorageUsage is a point-in-time report computed by walking the original
// and thumbnail storage trees. There is no persisted running counter.
type StorageUsage struct {
	OriginalsBytes  int64   `json:"originals_bytes"`
	OriginalsCount  int     `json:"originals_count"`
	ThumbnailsBytes int64   `json:"thumbnails_bytes"`
	ThumbnailsCount int     `json:"thumbnails_count"`
	TotalBytes      int64   `json:"total_bytes"`
	QuotaBytes      int64   `json:"quota_bytes"`
	UsedFraction    float64 `json:"used_fraction"`
	AvailableBytes  int64   `json:"available_bytes"`
}

// Stats reports row counts and the database file size.
type Stats struct {
	Users       int   `db:"users" json:"users"`
	Devices     int   `db:"devices" json:"devices"`
	Images      int   `db:"images" json:"images"`
	Assignments int   `db:"assignments" json:"assignments"`
	DBSizeBytes int64 `db:"-" json:"db_size_bytes"`
}
