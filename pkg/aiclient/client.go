package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Generator produces a completion for a prompt. The API surface is
// deliberately tiny; callers that need structure encode it into the prompt
// and parse the text themselves.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client is a Generator over an OpenAI-compatible chat completions API.
//
// Each Generate call walks the model fallback chain in order. A model gets
// up to MaxAttempts tries with exponential backoff on retryable failures
// (429, 5xx, request timeout, transport errors); a non-retryable provider
// error aborts the whole call since it would fail identically on every
// model. When the entire chain fails, the returned error wraps
// ErrGeneratorExhausted together with the last underlying failure.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	models      []string
	creds       *CredentialPool
	temperature float64
	maxAttempts int
	baseDelay   time.Duration
	log         *slog.Logger
}

// Option configures optional Client settings.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates an AI client from config.
func New(cfg Config, opts ...Option) (*Client, error) {
	creds, err := NewCredentialPool(cfg.APIKeys)
	if err != nil {
		return nil, err
	}
	if len(cfg.Models) == 0 {
		return nil, ErrNoModels
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		models:      cfg.Models,
		creds:       creds,
		temperature: cfg.Temperature,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate runs the prompt through the model chain and returns the first
// successful completion.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	var lastErr error
	for _, model := range c.models {
		for attempt := 1; attempt <= c.maxAttempts; attempt++ {
			text, err := c.complete(ctx, model, prompt)
			if err == nil {
				return text, nil
			}
			lastErr = err

			if !isRetryable(err) {
				// Retrying or switching models won't fix a rejected request.
				return "", err
			}

			c.log.WarnContext(ctx, "model request failed",
				slog.String("model", model),
				slog.Int("attempt", attempt),
				slog.Any("error", err))

			if attempt < c.maxAttempts {
				if err := sleep(ctx, c.backoff(attempt)); err != nil {
					return "", err
				}
			}
		}
	}

	return "", errors.Join(ErrGeneratorExhausted, lastErr)
}

func (c *Client) complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.Next())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Bounded read keeps a misbehaving provider from ballooning errors.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return result.Choices[0].Message.Content, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.baseDelay << (attempt - 1)
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("provider returned status %d", e.code)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.code, e.body)
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusRequestTimeout ||
			se.code == http.StatusTooManyRequests ||
			se.code >= 500
	}
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// http.Client wraps transport failures in *url.Error; treat connection
	// level problems as transient.
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset")
}
