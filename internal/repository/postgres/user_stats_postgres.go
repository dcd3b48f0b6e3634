package postgres

import (
	"context"
	"database/sql"

	"filemaster/internal/model"
	"filemaster/internal/repository"
)

// UserStatsPostgres is a PostgreSQL implementation of repository.UserStatsRepository.
type UserStatsPostgres struct {
	db *sql.DB
}

// NewUserStatsPostgres creates a new UserStatsPostgres repository.
func NewUserStatsPostgres(db *sql.DB) *UserStatsPostgres {
	return &UserStatsPostgres{db: db}
}

var _ repository.UserStatsRepository = (*UserStatsPostgres)(nil)

// Increment never reads the current totals; concurrent calls for the same user
// are serialized by the row lock taken in ON CONFLICT.
func (r *UserStatsPostgres) Increment(ctx context.Context, userID string, d model.StatsDelta) error {
	const q = `
		INSERT INTO user_stats (user_id, total_files, total_size, total_compressed, space_saved, total_downloads, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, now())
		ON CONFLICT (user_id) DO UPDATE SET
			total_files = user_stats.total_files + EXCLUDED.total_files,
			total_size = user_stats.total_size + EXCLUDED.total_size,
			total_compressed = user_stats.total_compressed + EXCLUDED.total_compressed,
			space_saved = user_stats.space_saved + EXCLUDED.space_saved,
			updated_at = now()`
	_, err := r.db.ExecContext(ctx, q, userID, d.Files, d.OriginalBytes, d.CompressedBytes, d.Saved())
	return err
}

// Get fetches the user's totals.
func (r *UserStatsPostgres) Get(ctx context.Context, userID string) (*model.UserStats, error) {
	const q = `
		SELECT user_id, total_files, total_size, total_compressed, space_saved, total_downloads, updated_at
		FROM user_stats
		WHERE user_id = $1`
	var s model.UserStats
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&s.UserID,
		&s.TotalFiles,
		&s.TotalSize,
		&s.TotalCompressed,
		&s.SpaceSaved,
		&s.TotalDownloads,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
