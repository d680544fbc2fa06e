package gemini

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

const apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

func init() {
	reasoner.RegisterProvider("gemini", func(cfg *config.ReasonerProviderConfig) (port.Reasoner, error) {
		return NewReasoner(cfg), nil
	})
}

// Reasoner implements port.Reasoner using Google's Gemini API.
type Reasoner struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewReasoner creates a Gemini-backed reasoner.
func NewReasoner(cfg *config.ReasonerProviderConfig) *Reasoner {
	return newReasoner(cfg, "")
}

// NewReasonerWithEndpoint creates a reasoner pointing at a custom API endpoint (for testing).
func NewReasonerWithEndpoint(cfg *config.ReasonerProviderConfig, endpoint string) *Reasoner {
	return newReasoner(cfg, endpoint)
}

func newReasoner(cfg *config.ReasonerProviderConfig, endpoint string) *Reasoner {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"temperature":      0.1,
			"maxOutputTokens":  2048,
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
	req.Header.Set("x-goog-api-key", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gemini API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := reasoner.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, reasoner.NewRateLimitError("gemini", baseErr, retryAfter)
		}
		return nil, &reasoner.UnavailableError{Provider: "gemini", Err: baseErr}
	}

	return extractAnswer(respBody)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func extractAnswer(body []byte) (json.RawMessage, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from API: no candidates")
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from API: no parts")
	}

	return json.RawMessage(resp.Candidates[0].Content.Parts[0].Text), nil
}
