package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/domain/recording"
)

const summarizeSystemPrompt = `You summarize meeting and lecture transcripts.
Respond with a single JSON object, no markdown, with exactly these fields:
  "summary": a concise paragraph,
  "article": a structured long-form writeup,
  "key_points": an array of short bullet strings.`

// Summarizer is a pooled chat-completion unit producing summaries.
type Summarizer struct {
	client *Client
	model  string
}

// NewSummarizer creates a summarizer unit for the given chat model.
func NewSummarizer(client *Client, model string) *Summarizer {
	return &Summarizer{client: client, model: model}
}

// Summarize condenses a transcript into summary, article, and key points.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (recording.Summary, error) {
	content, usage, err := s.client.chat(ctx, "summarize", s.model, summarizeSystemPrompt, transcript)
	if err != nil {
		return recording.Summary{}, err
	}
	recordTokens("summarize", s.model, usage)

	var parsed struct {
		Summary   string   `json:"summary"`
		Article   string   `json:"article"`
		KeyPoints []string `json:"key_points"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return recording.Summary{}, fmt.Errorf("parse summary response: %v: %w", err, domain.ErrProviderError)
	}
	if parsed.Summary == "" {
		return recording.Summary{}, fmt.Errorf("empty summary response: %w", domain.ErrProviderError)
	}

	return recording.Summary{
		Summary:   parsed.Summary,
		Article:   parsed.Article,
		KeyPoints: parsed.KeyPoints,
	}, nil
}

// Close implements pool.Unit. The API client is shared; nothing to release.
func (s *Summarizer) Close() error { return nil }

// chat runs one system+user chat completion with retry and metrics.
func (c *Client) chat(ctx context.Context, operation, model, system, user string) (string, openai.Usage, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	start := time.Now()
	var resp openai.ChatCompletionResponse
	err := c.withRetry(ctx, operation, func() error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(ctx, req)
		return callErr
	})
	observe(operation, model, start, err)
	if err != nil {
		return "", openai.Usage{}, parseAPIError(operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", openai.Usage{}, fmt.Errorf("empty %s response: %w", operation, domain.ErrProviderError)
	}
	return resp.Choices[0].Message.Content, resp.Usage, nil
}
