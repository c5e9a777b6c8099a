package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harvestfund/granary/internal/common"
)

const defaultBaseURL = "https://api.openai.com/v1"

// openAIClient implements Client against any OpenAI-compatible chat
// completions endpoint.
type openAIClient struct {
	httpClient  *http.Client
	limiter     *rateLimiter
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", common.ErrMissingConfig)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	return &openAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		limiter:     newRateLimiter(cfg.RequestsPerMinute),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

const systemPrompt = "You are helping a small business owner complete a grant " +
	"application. Answer the requested field directly and concisely in plain " +
	"text. Do not add commentary, labels, or markdown."

// Complete asks the model for one field's text. Transient failures are
// retried a small fixed number of times before the error surfaces; the
// caller degrades to an empty value either way.
func (c *openAIClient) Complete(ctx context.Context, prompt, contextText string) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", err
	}

	userContent := prompt
	if contextText != "" {
		userContent = prompt + "\n\nKnown application details:\n" + contextText
	}

	var content string
	err := common.WithRetry(ctx, func() error {
		var opErr error
		content, opErr = c.complete(ctx, userContent)
		return opErr
	}, common.RetryOptions{MaxAttempts: 3})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrLLMUnavailable, err)
	}
	return strings.TrimSpace(content), nil
}

func (c *openAIClient) complete(ctx context.Context, userContent string) (string, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userContent},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", common.ErrRateLimit
	case resp.StatusCode >= 500:
		return "", &common.RetryableError{
			Err:       fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)),
			Retryable: true,
		}
	case resp.StatusCode != http.StatusOK:
		return "", &common.RetryableError{
			Err:       fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)),
			Retryable: false,
		}
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}

// chatResponse is the subset of the chat completions response we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
