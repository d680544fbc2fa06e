package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"claimflow/internal/domain"
)

// MockClaimRunRepo is a mock implementation of port.ClaimRunRepository.
type MockClaimRunRepo struct {
	mock.Mock
}

func (m *MockClaimRunRepo) Create(ctx context.Context, run *domain.ClaimRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockClaimRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClaimRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClaimRun), args.Error(1)
}

func (m *MockClaimRunRepo) List(ctx context.Context, offset, limit int) ([]domain.ClaimRun, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ClaimRun), args.Int(1), args.Error(2)
}
