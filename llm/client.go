// Package llm talks to the generation backend. The backend is opaque: any
// OpenAI-compatible chat completions endpoint works.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"agent-lab/domain"

	"github.com/samber/lo"
)

const defaultTimeout = 60 * time.Second

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements contract.Completer. A transient failure (network error
// or 5xx) is retried once before the call is surfaced to the caller.
type Client struct {
	config Config
	client *http.Client
	log    *slog.Logger
}

func NewClient(config Config, log *slog.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		log:    log,
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	request := completionRequest{
		Model: c.config.Model,
		Messages: lo.Map(messages, func(m domain.ChatMessage, _ int) wireMessage {
			return wireMessage{Role: string(m.Role), Content: m.Content}
		}),
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	content, err := c.post(ctx, body)
	if err == nil {
		return content, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if !retryable(err) {
		return "", err
	}

	c.log.Warn("Completion failed, retrying once", "error", err)
	return c.post(ctx, body)
}

// statusError is a non-200 completion response. 4xx responses are permanent
// (bad request, bad key, unknown model) and must not be retried.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("completion endpoint returned %d: %s", e.code, e.body)
}

func retryable(err error) bool {
	var status *statusError
	if errors.As(err, &status) {
		return status.code >= http.StatusInternalServerError
	}
	// Network-level failures are treated as transient.
	return true
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &statusError{code: resp.StatusCode, body: string(raw)}
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion endpoint returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
