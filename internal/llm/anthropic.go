package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/content-curator/internal/httpx"
)

const (
	defaultAnthropicURL       = "https://api.anthropic.com"
	anthropicVersion          = "2023-06-01"
	defaultAnthropicMaxTokens = 1000
)

// AnthropicClient implements Client over the non-streaming messages API.
type AnthropicClient struct {
	apiKey   string
	baseURL  string
	config   *Config
	executor *httpx.Executor
	usage    UsageRecorder
}

// NewAnthropicClient creates a client for the Anthropic messages API.
func NewAnthropicClient(config *Config, apiKey string, opts ...Option) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	o := buildOptions(opts)

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}

	return &AnthropicClient{
		apiKey:   apiKey,
		baseURL:  baseURL,
		config:   config,
		executor: httpx.NewExecutor(httpClient, o.retry),
		usage:    o.usage,
	}, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateContent generates text content using the specified model tier
func (c *AnthropicClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.complete(ctx, "", prompt, tier)
}

// GenerateJSON asks for a bare JSON answer and strips any fencing from the reply.
func (c *AnthropicClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.complete(ctx, "Respond with a single valid JSON value and nothing else.", prompt, tier)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *AnthropicClient) complete(ctx context.Context, system, prompt string, tier ModelTier) (string, error) {
	model := c.config.GetModel(tier)
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	maxTokens := c.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	payload, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: 0.2,
		System:      system,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContent{{Type: "text", Text: prompt}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.executor.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Anthropic-Version", anthropicVersion)
		return req, nil
	})
	if err != nil {
		return "", &APICallError{Provider: ProviderAnthropic, Message: "request failed", Cause: err}
	}

	body, err := httpx.ReadBody(resp)
	if err != nil {
		return "", &APICallError{Provider: ProviderAnthropic, Message: "failed to read response", Cause: err}
	}

	var decoded anthropicResponse
	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(string(body))
		if decodeErr == nil && decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return "", &APICallError{Provider: ProviderAnthropic, StatusCode: resp.StatusCode, Message: excerpt(msg)}
	}
	if decodeErr != nil {
		return "", &APICallError{Provider: ProviderAnthropic, Message: "invalid response body", Cause: decodeErr}
	}

	if c.usage != nil {
		c.usage.RecordTokens(ctx, model, decoded.Usage.InputTokens, decoded.Usage.OutputTokens)
	}

	var parts []string
	for _, block := range decoded.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", &APICallError{Provider: ProviderAnthropic, Message: "no text content in response"}
	}
	return strings.Join(parts, ""), nil
}

// GetModel returns the model name for a tier
func (c *AnthropicClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client holds no per-client resources.
func (c *AnthropicClient) Close() error {
	return nil
}
