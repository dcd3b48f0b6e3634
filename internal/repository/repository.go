// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres) inside this directory.
package repository

import (
	"context"

	"filemaster/internal/model"
)

// ProcessedFileRepository persists provenance records. Persistence only, no
// business logic.
type ProcessedFileRepository interface {
	// Create inserts a new record and returns the stored row.
	Create(ctx context.Context, f *model.ProcessedFile) (*model.ProcessedFile, error)

	// FindByID returns sql.ErrNoRows when the record does not exist.
	FindByID(ctx context.Context, id string) (*model.ProcessedFile, error)

	// Delete removes a record by ID. Missing rows are not an error.
	Delete(ctx context.Context, id string) error

	// RecordDownload increments the record's download counter and the owner's
	// total downloads in one transaction and returns the updated record.
	// It returns sql.ErrNoRows when no record with that id belongs to ownerID.
	RecordDownload(ctx context.Context, id, ownerID string) (*model.ProcessedFile, error)
}

// UserStatsRepository maintains per-user running totals.
type UserStatsRepository interface {
	// Increment adds delta to the user's totals with a single atomic upsert,
	// creating the row on first use.
	Increment(ctx context.Context, userID string, delta model.StatsDelta) error

	// Get returns sql.ErrNoRows when the user has no stats yet.
	Get(ctx context.Context, userID string) (*model.UserStats, error)
}
