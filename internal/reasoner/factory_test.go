package reasoner_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"claimflow/internal/config"
	"claimflow/internal/port"
	"claimflow/internal/reasoner"
)

func TestFactory_RegisterAndCreate(t *testing.T) {
	reasoner.RegisterProvider("test-provider", func(cfg *config.ReasonerProviderConfig) (port.Reasoner, error) {
		return &factoryStub{model: cfg.DefaultModel}, nil
	})

	r, err := reasoner.NewReasoner(&config.ReasonerProviderConfig{
		Provider:     "test-provider",
		DefaultModel: "test-model",
	})

	assert.NoError(t, err)
	assert.NotNil(t, r)
}

func TestFactory_UnknownProvider(t *testing.T) {
	r, err := reasoner.NewReasoner(&config.ReasonerProviderConfig{
		Provider: "nonexistent-provider-xyz",
	})

	assert.Nil(t, r)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown reasoning provider")
}

// factoryStub is a minimal Reasoner for testing the factory.
type factoryStub struct {
	model string
}

func (s *factoryStub) Invoke(_ context.Context, _ port.ReasonInput) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}
