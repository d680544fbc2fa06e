package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"claimflow/internal/config"
	"claimflow/internal/port"
	"claimflow/internal/reasoner"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

func init() {
	reasoner.RegisterProvider("claude", func(cfg *config.ReasonerProviderConfig) (port.Reasoner, error) {
		return NewReasoner(cfg), nil
	})
}

// Reasoner implements port.Reasoner using the Anthropic Messages API.
type Reasoner struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewReasoner creates a Claude-backed reasoner.
func NewReasoner(cfg *config.ReasonerProviderConfig) *Reasoner {
	return newReasoner(cfg, apiURL)
}

// NewReasonerWithEndpoint creates a reasoner pointing at a custom API endpoint (for testing).
func NewReasonerWithEndpoint(cfg *config.ReasonerProviderConfig, endpoint string) *Reasoner {
	return newReasoner(cfg, endpoint)
}

func newReasoner(cfg *config.ReasonerProviderConfig, endpoint string) *Reasoner {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Reasoner{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *Reasoner) Invoke(ctx context.Context, input port.ReasonInput) (json.RawMessage, error) {
	prompt, err := reasoner.BuildPrompt(input)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model":      r.model,
		"max_tokens": 2048,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", r.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := reasoner.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, reasoner.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return nil, &reasoner.UnavailableError{Provider: "claude", Err: baseErr}
	}

	return extractAnswer(respBody)
}

// claudeResponse models the Anthropic Messages API response.
type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func extractAnswer(body []byte) (json.RawMessage, error) {
	var resp claudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return json.RawMessage(block.Text), nil
		}
	}
	return nil, fmt.Errorf("empty response from API: no text content")
}
