package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/domain/recording"
)

// Transcriber is a pooled speech-to-text unit backed by the audio API.
type Transcriber struct {
	client *Client
	model  string
}

// NewTranscriber creates a transcriber unit for the given model.
func NewTranscriber(client *Client, model string) *Transcriber {
	return &Transcriber{client: client, model: model}
}

// Transcribe converts the audio file at audioRef into a transcript with
// timestamped segments.
func (t *Transcriber) Transcribe(ctx context.Context, audioRef string) (string, []recording.Segment, error) {
	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: audioRef,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	start := time.Now()
	var resp openai.AudioResponse
	err := t.client.withRetry(ctx, "transcribe", func() error {
		var callErr error
		resp, callErr = t.client.api.CreateTranscription(ctx, req)
		return callErr
	})
	observe("transcribe", t.model, start, err)
	if err != nil {
		return "", nil, parseAPIError("transcription", err)
	}

	segments := make([]recording.Segment, 0, len(resp.Segments))
	for i, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, recording.Segment{
			Index: i,
			Start: s.Start,
			End:   s.End,
			Text:  text,
		})
	}

	transcript := strings.TrimSpace(resp.Text)
	if transcript == "" && len(segments) == 0 {
		return "", nil, fmt.Errorf("empty transcription response: %w", domain.ErrProviderError)
	}
	return transcript, segments, nil
}

// Close implements pool.Unit. The API client is shared; nothing to release.
func (t *Transcriber) Close() error { return nil }
