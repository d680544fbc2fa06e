package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"claimflow/internal/port"
)

// MockReasoner is a mock implementation of port.Reasoner.
type MockReasoner struct {
	mock.Mock
}

func (m *MockReasoner) Invoke(ctx context.Context, input port.ReasonInput) (json.RawMessage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}
