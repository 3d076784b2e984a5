// Package llm calls an OpenAI-compatible chat completions endpoint.
// Invoke never returns an error: an empty string is the only failure signal.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"briefing/internal/domain"
	"briefing/internal/metrics"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// RequestsPerSecond <= 0 disables throttling.
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
	metrics *metrics.Metrics
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

var _ domain.Generator = (*Client)(nil)

func NewClient(cfg Config, logger *log.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.perplexity.ai"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "sonar-pro"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		limiter: limiter,
		logger:  logger,
		metrics: m,
	}
}

// Available reports whether calls can reach the model at all.
func (c *Client) Available() bool { return c != nil && c.cfg.APIKey != "" }

// Invoke sends prompt with an optional system message and returns the trimmed
// reply, or "" when the model is unavailable, the call fails or times out.
func (c *Client) Invoke(ctx context.Context, prompt, systemMessage string) string {
	if !c.Available() {
		if c != nil {
			c.logger.Printf("model call skipped: no valid credential configured")
			c.metrics.ModelCall(metrics.Skipped)
		}
		return ""
	}
	out, err := c.complete(ctx, prompt, systemMessage)
	if err != nil {
		c.logger.Printf("%v: %v", domain.ErrModelCall, err)
		c.metrics.ModelCall(metrics.Failed)
		return ""
	}
	c.metrics.ModelCall(metrics.OK)
	c.logger.Printf("model returned %d chars", len(out))
	return out
}

func (c *Client) complete(ctx context.Context, prompt, systemMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	messages := make([]chatMessage, 0, 2)
	if systemMessage != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemMessage})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 200))
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chat.Error != nil {
		return "", fmt.Errorf("provider error (%s): %s", chat.Error.Type, chat.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 200))
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return strings.TrimSpace(chat.Choices[0].Message.Content), nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
