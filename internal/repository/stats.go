package repository

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"framesync/internal/model"
)

type statsRepository struct {
	db     *sqlx.DB
	dbPath string
}

func NewStatsRepository(db *sqlx.DB, dbPath string) StatsRepository {
	return &statsRepository{db: db, dbPath: dbPath}
}

// Stats returns row counts per table plus the database file size.
func (r *statsRepository) Stats(ctx context.Context) (*model.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM devices) AS devices,
			(SELECT COUNT(*) FROM images) AS images,
			(SELECT COUNT(*) FROM image_device_assignments) AS assignments
	`

	var stats model.Stats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	if info, err := os.Stat(r.dbPath); err == nil {
		stats.DBSizeBytes = info.Size()
	}

	return &stats, nil
}
