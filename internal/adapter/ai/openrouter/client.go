// Package openrouter implements domain.AIClient against the OpenRouter
// (OpenAI-compatible) chat completions API.
package openrouter

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

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/hkdse-ai/reading-grader/internal/adapter/observability"
	"github.com/hkdse-ai/reading-grader/internal/config"
	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// Client calls one configured grading model with exponential-backoff retry.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a client with the configured request timeout.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.AIRequestTimeout},
	}
}

func (c *Client) backoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// ChatJSON sends the prompts to the chat completions endpoint and returns the
// assistant text. 429 and 5xx responses are retried with backoff; other 4xx
// responses are permanent.
func (c *Client) ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrInvalidArgument)
	}

	body := map[string]any{
		"model":       c.cfg.GradingModel,
		"temperature": c.cfg.GradingTemperature,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	b, _ := json.Marshal(body)

	var out struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	endpoint := c.cfg.OpenRouterBaseURL + "/chat/completions"
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
		r.Header.Set("Content-Type", "application/json")
		if c.cfg.OpenRouterReferer != "" {
			r.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
		}
		if c.cfg.OpenRouterTitle != "" {
			r.Header.Set("X-Title", c.cfg.OpenRouterTitle)
		}

		resp, err := c.hc.Do(r)
		observability.AIRequestDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.AIRequestsTotal.WithLabelValues("chat", "transport_error").Inc()
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			observability.AIRequestsTotal.WithLabelValues("chat", "rate_limited").Inc()
			slog.Warn("ai provider rate limited",
				slog.Int("status", resp.StatusCode),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("chat status 429: %w", domain.ErrUpstreamRateLimit)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			observability.AIRequestsTotal.WithLabelValues("chat", "client_error").Inc()
			slog.Warn("ai provider 4xx",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.GradingModel),
				slog.String("body", snippet(bodyBytes, 512)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			observability.AIRequestsTotal.WithLabelValues("chat", "server_error").Inc()
			slog.Error("ai provider non-2xx",
				slog.Int("status", resp.StatusCode),
				slog.String("body", snippet(bodyBytes, 512)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}

		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			observability.AIRequestsTotal.WithLabelValues("chat", "decode_error").Inc()
			return err
		}
		observability.AIRequestsTotal.WithLabelValues("chat", "ok").Inc()
		return nil
	}

	bo := backoff.WithContext(c.backoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("op=openrouter.ChatJSON: %w: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("op=openrouter.ChatJSON: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("op=openrouter.ChatJSON: empty choices")
	}
	if out.Model != "" && out.Model != c.cfg.GradingModel {
		slog.Warn("model substitution detected",
			slog.String("requested_model", c.cfg.GradingModel),
			slog.String("actual_model", out.Model))
	}
	return out.Choices[0].Message.Content, nil
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
