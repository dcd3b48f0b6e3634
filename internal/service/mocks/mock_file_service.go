package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"filemaster/internal/model"
	"filemaster/internal/service"
)

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Process(ctx context.Context, req service.ProcessRequest) (*service.ProcessResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProcessResult), args.Error(1)
}

func (m *MockFileService) Download(ctx context.Context, userID, id string) (*service.DownloadResult, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DownloadResult), args.Error(1)
}

func (m *MockFileService) Stats(ctx context.Context, userID string) (*model.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserStats), args.Error(1)
}
