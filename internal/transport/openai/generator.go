package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/domain/recording"
)

const generateSystemPrompt = `You write comprehension tests for transcripts.
Respond with a single JSON array, no markdown. Each element has exactly:
  "prompt": the question text,
  "options": an array of four answer options,
  "answer": the correct option, copied verbatim from "options".`

// Generator is a pooled chat-completion unit producing comprehension tests.
type Generator struct {
	client *Client
	model  string
}

// NewGenerator creates a test generator unit for the given chat model.
func NewGenerator(client *Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate produces multiple-choice questions from a transcript. Key points,
// when present, steer the questions toward the material that matters.
func (g *Generator) Generate(ctx context.Context, transcript string, keyPoints []string) ([]recording.Question, error) {
	user := transcript
	if len(keyPoints) > 0 {
		user = "Key points:\n- " + strings.Join(keyPoints, "\n- ") + "\n\nTranscript:\n" + transcript
	}

	content, usage, err := g.client.chat(ctx, "generate", g.model, generateSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	recordTokens("generate", g.model, usage)

	var parsed []struct {
		Prompt  string   `json:"prompt"`
		Options []string `json:"options"`
		Answer  string   `json:"answer"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("parse test response: %v: %w", err, domain.ErrProviderError)
	}

	questions := make([]recording.Question, 0, len(parsed))
	for _, q := range parsed {
		if q.Prompt == "" || len(q.Options) == 0 {
			continue
		}
		questions = append(questions, recording.Question{
			Prompt:  q.Prompt,
			Options: q.Options,
			Answer:  q.Answer,
		})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("empty test response: %w", domain.ErrProviderError)
	}
	return questions, nil
}

// Close implements pool.Unit. The API client is shared; nothing to release.
func (g *Generator) Close() error { return nil }
