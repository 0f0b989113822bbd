// Package openai adapts the OpenAI-compatible API into the pipeline's
// pooled units (transcriber, summarizer, generator, embedder).
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/metrics"
)

// Config holds the provider settings shared by all units.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	WhisperModel   string
	EmbeddingModel string
	Dimensions     int
	MaxRetries     int
	Logger         *zap.Logger
}

// Client wraps the API client with retry and error translation.
type Client struct {
	api        *openai.Client
	maxRetries int
	logger     *zap.Logger
}

// NewClient creates a provider client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		api:        openai.NewClientWithConfig(clientCfg),
		maxRetries: cfg.MaxRetries,
		logger:     log,
	}
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// withRetry runs op with exponential backoff. Client errors (4xx) are not
// retried; transient and server-side failures are, up to maxRetries.
func (c *Client) withRetry(ctx context.Context, operation string, op func() error) error {
	attempt := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("provider request failed, retrying",
			zap.String("operation", operation), zap.Error(err))
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second

	policy := backoff.WithContext(
		backoff.WithMaxRetries(b, uint64(max(c.maxRetries, 0))), ctx)
	return backoff.Retry(attempt, policy)
}

// isPermanent reports whether the API error should not be retried.
func isPermanent(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 &&
			apiErr.HTTPStatusCode != 429
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 400 && reqErr.HTTPStatusCode < 500 &&
			reqErr.HTTPStatusCode != 429
	}
	return false
}

// observe records request metrics for one provider call.
func observe(operation, model string, start time.Time, err error) {
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(operation, model, "error").Inc()
		return
	}
	metrics.ProviderRequestsTotal.WithLabelValues(operation, model, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(operation, model).Observe(time.Since(start).Seconds())
}

// recordTokens records token usage for one provider call.
func recordTokens(operation, model string, usage openai.Usage) {
	if usage.TotalTokens == 0 {
		return
	}
	metrics.ProviderTokensTotal.WithLabelValues(operation, model, "prompt").Add(float64(usage.PromptTokens))
	metrics.ProviderTokensTotal.WithLabelValues(operation, model, "completion").Add(float64(usage.CompletionTokens))
	metrics.ProviderTokensTotal.WithLabelValues(operation, model, "total").Add(float64(usage.TotalTokens))
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrProviderError for correct 502 mapping.
func parseAPIError(operation string, err error) error {
	wrap := domain.ErrProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w",
			operation, reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w",
			operation, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %v: %w", operation, err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

// extractJSON strips a markdown code fence around a model reply, if present.
// Chat models wrap JSON answers in ```json fences even when told not to.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
