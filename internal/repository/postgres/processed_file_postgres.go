package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"filemaster/internal/model"
	"filemaster/internal/repository"
)

// ProcessedFilePostgres is a PostgreSQL implementation of repository.ProcessedFileRepository.
type ProcessedFilePostgres struct {
	db *sql.DB
}

// NewProcessedFilePostgres creates a new ProcessedFilePostgres repository.
func NewProcessedFilePostgres(db *sql.DB) *ProcessedFilePostgres {
	return &ProcessedFilePostgres{db: db}
}

var _ repository.ProcessedFileRepository = (*ProcessedFilePostgres)(nil)

const processedFileColumns = `id, storage_path, display_name, owner_id, original_size, output_size,
		content_type, compression_ratio, tool_used, download_count, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProcessedFile(row scanner) (*model.ProcessedFile, error) {
	var f model.ProcessedFile
	if err := row.Scan(
		&f.ID,
		&f.StoragePath,
		&f.DisplayName,
		&f.OwnerID,
		&f.OriginalSize,
		&f.OutputSize,
		&f.ContentType,
		&f.CompressionRatio,
		&f.ToolUsed,
		&f.DownloadCount,
		&f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a new processed_files row. download_count always starts at 0.
func (r *ProcessedFilePostgres) Create(ctx context.Context, f *model.ProcessedFile) (*model.ProcessedFile, error) {
	const q = `
		INSERT INTO processed_files (id, storage_path, display_name, owner_id, original_size, output_size,
			content_type, compression_ratio, tool_used, download_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10)
		RETURNING ` + processedFileColumns
	row := r.db.QueryRowContext(ctx, q,
		f.ID,
		f.StoragePath,
		f.DisplayName,
		f.OwnerID,
		f.OriginalSize,
		f.OutputSize,
		f.ContentType,
		f.CompressionRatio,
		f.ToolUsed,
		f.CreatedAt,
	)
	return scanProcessedFile(row)
}

// FindByID fetches a single record by its ID.
func (r *ProcessedFilePostgres) FindByID(ctx context.Context, id string) (*model.ProcessedFile, error) {
	const q = `SELECT ` + processedFileColumns + ` FROM processed_files WHERE id = $1`
	return scanProcessedFile(r.db.QueryRowContext(ctx, q, id))
}

// Delete removes a record by ID.
func (r *ProcessedFilePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM processed_files WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// RecordDownload bumps both counters atomically. The owner filter doubles as
// the authorization check.
func (r *ProcessedFilePostgres) RecordDownload(ctx context.Context, id, ownerID string) (*model.ProcessedFile, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const qFile = `
		UPDATE processed_files SET download_count = download_count + 1
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + processedFileColumns
	f, err := scanProcessedFile(tx.QueryRowContext(ctx, qFile, id, ownerID))
	if err != nil {
		return nil, err
	}

	const qStats = `
		INSERT INTO user_stats (user_id, total_downloads, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (user_id) DO UPDATE SET
			total_downloads = user_stats.total_downloads + 1,
			updated_at = now()`
	if _, err := tx.ExecContext(ctx, qStats, ownerID); err != nil {
		return nil, fmt.Errorf("increment downloads: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return f, nil
}
