package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"filemaster/internal/model"
)

type MockProcessedFileRepository struct {
	mock.Mock
}

func (m *MockProcessedFileRepository) Create(ctx context.Context, f *model.ProcessedFile) (*model.ProcessedFile, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProcessedFile), args.Error(1)
}

func (m *MockProcessedFileRepository) FindByID(ctx context.Context, id string) (*model.ProcessedFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProcessedFile), args.Error(1)
}

func (m *MockProcessedFileRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProcessedFileRepository) RecordDownload(ctx context.Context, id, ownerID string) (*model.ProcessedFile, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProcessedFile), args.Error(1)
}

type MockUserStatsRepository struct {
	mock.Mock
}

func (m *MockUserStatsRepository) Increment(ctx context.Context, userID string, delta model.StatsDelta) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

func (m *MockUserStatsRepository) Get(ctx context.Context, userID string) (*model.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserStats), args.Error(1)
}
