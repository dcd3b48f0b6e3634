package model

import "time"

// UserStats holds a user's running totals over all of their processed files.
type UserStats struct {
	UserID          string    `json:"user_id"`
	TotalFiles      int64     `json:"total_files"`
	TotalSize       int64     `json:"total_size"`
	TotalCompressed int64     `json:"total_compressed"`
	SpaceSaved      int64     `json:"space_saved"`
	TotalDownloads  int64     `json:"total_downloads"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatsDelta is one completed transformation's contribution to UserStats.
type StatsDelta struct {
	Files           int64
	OriginalBytes   int64
	CompressedBytes int64
}

// Saved is the bytes-saved increment for this delta.
func (d StatsDelta) Saved() int64 {
	return d.OriginalBytes - d.CompressedBytes
}
