// Package migration creates the processed_files and user_stats tables.
// Applied versions are recorded in schema_migrations so each step runs once.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type step struct {
	Version string
	SQL     string
}

var steps = []step{
	{
		Version: "000001_create_processed_files",
		SQL: `CREATE TABLE IF NOT EXISTS processed_files (
  id                TEXT             PRIMARY KEY,
  storage_path      TEXT             NOT NULL UNIQUE,
  display_name      TEXT             NOT NULL,
  owner_id          TEXT             NOT NULL,
  original_size     BIGINT           NOT NULL CHECK (original_size >= 0),
  output_size       BIGINT           NOT NULL CHECK (output_size >= 0),
  content_type      TEXT             NOT NULL,
  compression_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
  tool_used         TEXT             NOT NULL,
  download_count    BIGINT           NOT NULL DEFAULT 0,
  created_at        TIMESTAMPTZ      NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_processed_files_owner_created ON processed_files (owner_id, created_at DESC);`,
	},
	{
		Version: "000002_create_user_stats",
		SQL: `CREATE TABLE IF NOT EXISTS user_stats (
  user_id          TEXT        PRIMARY KEY,
  total_files      BIGINT      NOT NULL DEFAULT 0,
  total_size       BIGINT      NOT NULL DEFAULT 0,
  total_compressed BIGINT      NOT NULL DEFAULT 0,
  space_saved      BIGINT      NOT NULL DEFAULT 0,
  total_downloads  BIGINT      NOT NULL DEFAULT 0,
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

const createTracking = `CREATE TABLE IF NOT EXISTS schema_migrations (
  version    TEXT        PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Run applies every pending step, each in its own transaction, and returns
// how many were applied.
func Run(ctx context.Context, db *sql.DB, log zerolog.Logger) (int, error) {
	log = log.With().Str("component", "database").Logger()
	start := time.Now()

	if _, err := db.ExecContext(ctx, createTracking); err != nil {
		log.Error().Err(err).Msg("db_migration_failed")
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := 0
	for _, s := range steps {
		var done bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", s.Version,
		).Scan(&done)
		if err != nil {
			return applied, fmt.Errorf("check migration %s: %w", s.Version, err)
		}
		if done {
			continue
		}

		stepStart := time.Now()
		if err := apply(ctx, db, s); err != nil {
			log.Error().Err(err).Str("migration_step", s.Version).Msg("db_migration_failed")
			return applied, err
		}
		applied++
		log.Info().
			Str("migration_step", s.Version).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("db_migration_step")
	}

	log.Info().
		Int("applied", applied).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("db_migration_done")
	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, s step) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", s.Version, err)
	}
	if _, err := tx.ExecContext(ctx, s.SQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute migration %s: %w", s.Version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", s.Version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", s.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", s.Version, err)
	}
	return nil
}
