package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hkdse-ai/reading-grader/internal/adapter/observability"
	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// StreamChat posts a streaming chat completion and invokes deliver once per
// content delta. Streaming is not retried: a broken stream surfaces to the
// caller, who reports it to the client mid-conversation.
func (c *Client) StreamChat(ctx context.Context, messages []domain.ChatMessage, deliver func(string) error) error {
	if c.cfg.OpenRouterAPIKey == "" {
		return fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrInvalidArgument)
	}

	body := map[string]any{
		"model":       c.cfg.GradingModel,
		"temperature": c.cfg.ChatTemperature,
		"max_tokens":  c.cfg.ChatMaxTokens,
		"stream":      true,
		"messages":    messages,
	}
	b, _ := json.Marshal(body)

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("op=openrouter.StreamChat: %w", err)
	}
	r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "text/event-stream")
	if c.cfg.OpenRouterReferer != "" {
		r.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
	}
	if c.cfg.OpenRouterTitle != "" {
		r.Header.Set("X-Title", c.cfg.OpenRouterTitle)
	}

	start := time.Now()
	resp, err := c.hc.Do(r)
	if err != nil {
		observability.AIRequestsTotal.WithLabelValues("chat_stream", "transport_error").Inc()
		return fmt.Errorf("op=openrouter.StreamChat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	defer func() {
		observability.AIRequestDuration.WithLabelValues("chat_stream").Observe(time.Since(start).Seconds())
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		observability.AIRequestsTotal.WithLabelValues("chat_stream", "rate_limited").Inc()
		return fmt.Errorf("op=openrouter.StreamChat status 429: %w", domain.ErrUpstreamRateLimit)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		observability.AIRequestsTotal.WithLabelValues("chat_stream", "upstream_error").Inc()
		return fmt.Errorf("op=openrouter.StreamChat: status %d", resp.StatusCode)
	}

	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == "[DONE]" {
			break
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// keep-alive comments and partial frames are skipped
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := deliver(chunk.Choices[0].Delta.Content); err != nil {
			observability.AIRequestsTotal.WithLabelValues("chat_stream", "deliver_error").Inc()
			return fmt.Errorf("op=openrouter.StreamChat: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		observability.AIRequestsTotal.WithLabelValues("chat_stream", "stream_error").Inc()
		return fmt.Errorf("op=openrouter.StreamChat: %w", err)
	}
	observability.AIRequestsTotal.WithLabelValues("chat_stream", "ok").Inc()
	return nil
}
