// Package llm implements the chat client port over an OpenAI-compatible
// chat completions endpoint (OpenAI, OpenRouter, Ollama, vLLM).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Config holds the endpoint settings for the client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	HTTPTimeout time.Duration
}

// Client implements core.ChatClient against an OpenAI-compatible API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a chat client for the given endpoint.
func NewClient(cfg Config, logger *logging.Logger, opts ...Option) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// endpointURL builds the chat completions URL from the configured base.
func (c *Client) endpointURL() string {
	base := c.cfg.BaseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	base = strings.TrimSuffix(base, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

// wire types for the OpenAI-compatible request/response format.
type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
	MaxTokens   *int         `json:"max_tokens,omitempty"`
}

type apiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a completion request, retrying transient failures with
// linear backoff. Auth and client errors fail immediately.
func (c *Client) Complete(ctx context.Context, req core.ChatRequest) (*core.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, core.ErrValidation("EMPTY_CHAT_REQUEST", "at least one message is required")
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelay * time.Duration(attempt)):
			}
			c.logger.Debug("retrying chat completion", "attempt", attempt+1)
		}

		resp, err := c.complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !core.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, core.ErrToolExecution("CHAT_RETRIES_EXHAUSTED",
		fmt.Sprintf("chat completion failed after %d attempts", c.cfg.MaxRetries)).WithCause(lastErr)
}

func (c *Client) complete(ctx context.Context, req core.ChatRequest) (*core.ChatResponse, error) {
	messages := make([]apiMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = apiMessage{Role: m.Role, Content: m.Content}
	}
	body := apiRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = &req.MaxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.ErrToolExecution("CHAT_TRANSPORT", err.Error())
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, core.ErrToolExecution("CHAT_READ_BODY", err.Error())
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 512 {
			msg = msg[:512]
		}
		statusErr := core.ErrToolExecution("CHAT_STATUS",
			fmt.Sprintf("endpoint returned %d: %s", httpResp.StatusCode, msg))
		// Only 429 and 5xx are worth retrying.
		if httpResp.StatusCode != http.StatusTooManyRequests && httpResp.StatusCode < 500 {
			statusErr.Retryable = false
		}
		return nil, statusErr
	}

	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fatalErr("CHAT_PARSE", "malformed completion response").WithCause(err)
	}
	if parsed.Error != nil {
		return nil, fatalErr("CHAT_API_ERROR", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fatalErr("CHAT_NO_CHOICES", "no choices in completion response")
	}

	return &core.ChatResponse{
		Content:      parsed.Choices[0].Message.Content,
		Model:        parsed.Model,
		TokensIn:     parsed.Usage.PromptTokens,
		TokensOut:    parsed.Usage.CompletionTokens,
		FinishReason: parsed.Choices[0].FinishReason,
	}, nil
}

func fatalErr(code, msg string) *core.DomainError {
	e := core.ErrToolExecution(code, msg)
	e.Retryable = false
	return e
}
