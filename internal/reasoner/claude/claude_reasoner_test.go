package claude_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimflow/internal/config"
	"claimflow/internal/port"
	"claimflow/internal/reasoner"
	"claimflow/internal/reasoner/claude"
)

func testInput() port.ReasonInput {
	return port.ReasonInput{
		Template:  port.TemplateBillExtraction,
		Variables: map[string]string{"text": "HOSPITAL BILL total 500"},
	}
}

func testConfig() *config.ReasonerProviderConfig {
	return &config.ReasonerProviderConfig{
		Provider:    "claude",
		APIKey:      "test-key",
		TimeoutSecs: 5,
	}
}

func TestInvoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "model")
		assert.Contains(t, body, "messages")

		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "{\"total_amount\": 500}"}],
			"stop_reason": "end_turn"
		}`))
	}))
	defer server.Close()

	r := claude.NewReasonerWithEndpoint(testConfig(), server.URL)
	out, err := r.Invoke(context.Background(), testInput())

	require.NoError(t, err)
	assert.JSONEq(t, `{"total_amount": 500}`, string(out))
}

func TestInvoke_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	r := claude.NewReasonerWithEndpoint(testConfig(), server.URL)
	_, err := r.Invoke(context.Background(), testInput())

	var rlErr *reasoner.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "claude", rlErr.Provider)
	assert.Equal(t, float64(15), rlErr.RetryAfter.Seconds())
}

func TestInvoke_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	r := claude.NewReasonerWithEndpoint(testConfig(), server.URL)
	_, err := r.Invoke(context.Background(), testInput())

	var uErr *reasoner.UnavailableError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, "claude", uErr.Provider)
}

func TestInvoke_NoTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": [{"type": "tool_use"}]}`))
	}))
	defer server.Close()

	r := claude.NewReasonerWithEndpoint(testConfig(), server.URL)
	_, err := r.Invoke(context.Background(), testInput())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text content")
}
