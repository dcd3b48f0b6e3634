package service

import (
	"context"
	"math"
	"time"

	"filemaster/internal/model"
	"filemaster/internal/repository"
)

// compressionRatio is the percentage of bytes saved, rounded to 2 decimals.
// It is negative when the output is larger than the input.
func compressionRatio(original, output int64) float64 {
	if original == 0 {
		return 0
	}
	r := float64(original-output) / float64(original) * 100
	return math.Round(r*100) / 100
}

// ProvenanceRecorder writes one processed_files row per completed transformation.
type ProvenanceRecorder struct {
	repo repository.ProcessedFileRepository
	now  func() time.Time
}

func NewProvenanceRecorder(repo repository.ProcessedFileRepository) *ProvenanceRecorder {
	return &ProvenanceRecorder{repo: repo, now: time.Now}
}

// Provenance is what the dispatcher knows about a finished transformation.
type Provenance struct {
	ID           string
	StoragePath  string
	DisplayName  string
	OwnerID      string
	OriginalSize int64
	OutputSize   int64
	ContentType  string
	ToolUsed     string
}

func (r *ProvenanceRecorder) Record(ctx context.Context, p Provenance) (*model.ProcessedFile, error) {
	return r.repo.Create(ctx, &model.ProcessedFile{
		ID:               p.ID,
		StoragePath:      p.StoragePath,
		DisplayName:      p.DisplayName,
		OwnerID:          p.OwnerID,
		OriginalSize:     p.OriginalSize,
		OutputSize:       p.OutputSize,
		ContentType:      p.ContentType,
		CompressionRatio: compressionRatio(p.OriginalSize, p.OutputSize),
		ToolUsed:         p.ToolUsed,
		CreatedAt:        r.now().UTC(),
	})
}

// Forget removes a record written by Record. Used only for compensation.
func (r *ProvenanceRecorder) Forget(ctx context.Context, id string) error {
	return r.repo.Delete(ctx, id)
}

// StatsAggregator applies one transformation's delta to its owner's totals.
type StatsAggregator struct {
	repo repository.UserStatsRepository
}

func NewStatsAggregator(repo repository.UserStatsRepository) *StatsAggregator {
	return &StatsAggregator{repo: repo}
}

// Add is a single atomic increment; it never reads the current totals.
func (a *StatsAggregator) Add(ctx context.Context, userID string, original, output int64) error {
	return a.repo.Increment(ctx, userID, model.StatsDelta{
		Files:           1,
		OriginalBytes:   original,
		CompressedBytes: output,
	})
}
