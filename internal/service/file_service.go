package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"filemaster/internal/model"
	"filemaster/internal/repository"
	"filemaster/internal/storage"
)

// DownloadOptions control how processed files are handed to clients.
type DownloadOptions struct {
	// Presign redirects clients to a time-limited backend URL instead of
	// streaming through the API. Backends without presign support still stream.
	Presign    bool
	PresignTTL time.Duration
}

// fileService is the concrete FileService.
type fileService struct {
	dispatcher *Dispatcher
	store      storage.Storage
	files      repository.ProcessedFileRepository
	stats      repository.UserStatsRepository
	dl         DownloadOptions
}

// NewFileService constructs a FileService. Logging and metrics are shared with d.
func NewFileService(
	d *Dispatcher,
	store storage.Storage,
	files repository.ProcessedFileRepository,
	stats repository.UserStatsRepository,
	dl DownloadOptions,
) FileService {
	if dl.PresignTTL <= 0 {
		dl.PresignTTL = 15 * time.Minute
	}
	return &fileService{dispatcher: d, store: store, files: files, stats: stats, dl: dl}
}

func (s *fileService) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	return s.dispatcher.Dispatch(ctx, req)
}

func (s *fileService) Download(ctx context.Context, userID, id string) (*DownloadResult, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if userID == "" {
		return nil, ErrUserRequired
	}
	f, err := s.files.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if f.OwnerID != userID {
		return nil, ErrNotFound
	}

	res := &DownloadResult{}
	if s.dl.Presign {
		url, err := s.store.PresignGet(ctx, f.StoragePath, s.dl.PresignTTL, f.DisplayName)
		switch {
		case err == nil:
			res.RedirectURL = url
		case errors.Is(err, storage.ErrPresignUnsupported):
		default:
			return nil, fmt.Errorf("presign: %w", err)
		}
	}
	if res.RedirectURL == "" {
		body, info, err := s.store.Get(ctx, f.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("open object: %w", err)
		}
		res.Body, res.Size = body, info.Size
	}

	// Counted only once the object is known to be servable.
	updated, err := s.files.RecordDownload(ctx, id, userID)
	if err != nil {
		if res.Body != nil {
			res.Body.Close()
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("record download: %w", err)
	}
	res.File = updated
	s.dispatcher.metrics.incDownloads()
	s.dispatcher.log.Info().
		Str("user_id", userID).
		Str("file_id", id).
		Int64("download_count", updated.DownloadCount).
		Msg("download recorded")
	return res, nil
}

func (s *fileService) Stats(ctx context.Context, userID string) (*model.UserStats, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	st, err := s.stats.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.UserStats{UserID: userID}, nil
		}
		return nil, err
	}
	return st, nil
}
