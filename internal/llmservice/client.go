package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"conversational-rag/internal/config"
	"conversational-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// Client calls an OpenAI-compatible text completion endpoint
// (Together AI's /v1/completions). It never retries.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	key         string
	model       string
	maxTokens   int
	temperature float64
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Text *string `json:"text"`
	} `json:"choices"`
}

func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	if llmConfig.BaseURL == "" {
		return nil, fmt.Errorf("inference base url is required")
	}
	if llmConfig.Model == "" {
		return nil, fmt.Errorf("inference model is required")
	}

	httpClient := &http.Client{}
	if llmConfig.TimeoutSecs > 0 {
		httpClient.Timeout = time.Duration(llmConfig.TimeoutSecs) * time.Second
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(llmConfig.BaseURL, "/"),
		key:         strings.TrimPrefix(llmConfig.Key, "Bearer "),
		model:       llmConfig.Model,
		maxTokens:   llmConfig.MaxTokens,
		temperature: llmConfig.Temperature,
	}, nil
}

// Complete sends prompt and returns the first choice's text, trimmed.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload := completionRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	log.Debug().
		Str("model", c.model).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("Completion finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &models.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Text == nil {
		return "", fmt.Errorf("%w: no choices in response", models.ErrMalformedResponse)
	}
	return strings.TrimSpace(*out.Choices[0].Text), nil
}
