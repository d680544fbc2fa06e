package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claimflow/internal/domain"
)

// MockTextExtractor is a mock implementation of port.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, doc domain.DocumentInput) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}
