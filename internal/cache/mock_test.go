package cache

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

type MockTier struct {
	mock.Mock
}

func (m *MockTier) FetchBioseqInfo(ctx context.Context, key model.BioseqKey) ([]model.BioseqRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BioseqRecord), args.Error(1)
}

func (m *MockTier) FetchSi2csi(ctx context.Context, key model.Si2csiKey) ([]model.Si2csiRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Si2csiRecord), args.Error(1)
}

func (m *MockTier) PutBioseqInfo(ctx context.Context, rec model.BioseqRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockTier) PutSi2csi(ctx context.Context, rec model.Si2csiRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockTier) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTier) Close() error {
	return m.Called().Error(0)
}
