// Package openrouter implements the optimization engine on an
// OpenAI-compatible chat completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
	"github.com/resumepilot/resume-optimizer/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, model string) *Client {
	return NewWithOptions(baseURL, apiKey, model, Options{})
}

func NewWithOptions(baseURL, apiKey, model string, options Options) *Client {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Optimize(ctx context.Context, text string) (*domain.OptimizationResult, error) {
	var raw string
	call := func(callCtx context.Context) error {
		var err error
		raw, err = c.complete(callCtx, buildOptimizationPrompt(text))
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "engine.optimize", call, classifyEngineError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	var result domain.OptimizationResult
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse optimization json: %w", err)
	}
	if strings.TrimSpace(result.ImprovedText) == "" {
		return nil, fmt.Errorf("engine returned empty improved text")
	}
	if result.Issues == nil {
		result.Issues = []domain.Issue{}
	}
	clampScores(&result)
	return &result, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("engine completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", newHTTPError(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("engine returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

type httpError struct {
	status int
	body   string
}

func newHTTPError(resp *http.Response) *httpError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &httpError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
}

func (e *httpError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("engine http status %d", e.status)
	}
	return fmt.Sprintf("engine http status %d: %s", e.status, e.body)
}

// extractJSONObject tolerates models that wrap their JSON in prose or fences.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func clampScores(result *domain.OptimizationResult) {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}
	result.ATSScore = clamp(result.ATSScore)
	result.KeywordsScore = clamp(result.KeywordsScore)
	result.FormattingScore = clamp(result.FormattingScore)
}
