package model

import "time"

// ProcessedFile is the provenance record of one completed transformation.
// OwnerID never changes after insert; DownloadCount is only touched by download accounting.
type ProcessedFile struct {
	ID               string    `json:"id"`
	StoragePath      string    `json:"storage_path"`
	DisplayName      string    `json:"display_name"`
	OwnerID          string    `json:"owner_id"`
	OriginalSize     int64     `json:"original_size"`
	OutputSize       int64     `json:"output_size"`
	ContentType      string    `json:"content_type"`
	CompressionRatio float64   `json:"compression_ratio"`
	ToolUsed         string    `json:"tool_used"`
	DownloadCount    int64     `json:"download_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// BytesSaved is OriginalSize minus OutputSize. It is negative when the output grew.
func (f *ProcessedFile) BytesSaved() int64 {
	return f.OriginalSize - f.OutputSize
}
