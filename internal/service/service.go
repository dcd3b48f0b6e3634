package service

import (
	"context"
	"errors"
	"io"
	"time"

	"filemaster/internal/model"
	"filemaster/internal/transform"
)

var (
	// ErrProcessingFailure covers every failure after validation: executor,
	// storage and persistence errors. Its detail is logged, never returned to
	// clients.
	ErrProcessingFailure = errors.New("file processing failed")
	ErrIDRequired        = errors.New("id is required")
	ErrNotFound          = errors.New("file not found")
	ErrUserRequired      = errors.New("user id is required")
)

// Source is one uploaded file as handed over by the transport layer.
type Source interface {
	Meta() transform.FileMeta
	Open() (io.ReadCloser, error)
}

// ProcessRequest is one call to the dispatcher.
type ProcessRequest struct {
	RequestID string
	UserID    string
	Tool      string
	Files     []Source
	Params    transform.Params
}

// ResultDescriptor is returned for every non-preview tool.
type ResultDescriptor struct {
	ID           string `json:"id"`
	DownloadURL  string `json:"download_url"`
	DisplayName  string `json:"display_name"`
	OutputSize   int64  `json:"output_size"`
	OriginalSize int64  `json:"original_size"`
	BytesSaved   int64  `json:"bytes_saved"`
	ToolUsed     string `json:"tool_used"`
}

// ProcessResult carries either a ResultDescriptor or, for preview, the list of previews.
type ProcessResult struct {
	Result   *ResultDescriptor       `json:"result,omitempty"`
	Previews []transform.PreviewItem `json:"previews,omitempty"`
}

// DownloadResult is either a redirect URL or an open object body.
type DownloadResult struct {
	File        *model.ProcessedFile
	RedirectURL string
	Body        io.ReadCloser
	Size        int64
}

// FileService defines the use cases exposed over HTTP.
type FileService interface {
	// Process validates, executes and records one transformation.
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)

	// Download opens (or presigns) the caller's processed file and accounts the download.
	// Files owned by someone else are reported as ErrNotFound.
	Download(ctx context.Context, userID, id string) (*DownloadResult, error)

	// Stats returns the caller's totals; a user with no history gets zeros.
	Stats(ctx context.Context, userID string) (*model.UserStats, error)
}

// DownloadPath is the URL a processed file is served from.
func DownloadPath(id string) string {
	return "/api/download/" + id
}

func elapsed(start time.Time) float64 {
	return time.Since(start).Seconds()
}
