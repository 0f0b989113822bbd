package openai

import (
	"context"
	"fmt"

	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
	"github.com/GitHub-HackDay/sumview/internal/usecase/pool"
)

// ModelLoader provisions pooled units backed by the provider API.
// Implements pool.Loader.
type ModelLoader struct {
	client *Client

	chatModel      string
	whisperModel   string
	embeddingModel string
	dimensions     int

	// chatTierModels optionally overrides the chat model per tier for the
	// summarizer and generator kinds.
	chatTierModels map[resource.Tier]string
}

// NewModelLoader creates a loader from provider configuration.
func NewModelLoader(client *Client, cfg *Config) *ModelLoader {
	return &ModelLoader{
		client:         client,
		chatModel:      cfg.ChatModel,
		whisperModel:   cfg.WhisperModel,
		embeddingModel: cfg.EmbeddingModel,
		dimensions:     cfg.Dimensions,
	}
}

// WithChatTierModels sets per-tier chat model overrides.
func (l *ModelLoader) WithChatTierModels(m map[resource.Tier]string) *ModelLoader {
	l.chatTierModels = m
	return l
}

// Load provisions a unit for the key. The returned unit is cached by the
// pool; Close is invoked by the pool on eviction or shutdown.
func (l *ModelLoader) Load(_ context.Context, key resource.Key) (pool.Unit, error) {
	switch key.Kind() {
	case resource.KindTranscriber:
		return NewTranscriber(l.client, l.whisperModel), nil
	case resource.KindSummarizer:
		return NewSummarizer(l.client, l.chatModelFor(key.Tier())), nil
	case resource.KindGenerator:
		return NewGenerator(l.client, l.chatModelFor(key.Tier())), nil
	case resource.KindEmbedder:
		return NewEmbedder(l.client, l.embeddingModel, l.dimensions), nil
	default:
		return nil, fmt.Errorf("no provider unit for kind %q", key.Kind())
	}
}

func (l *ModelLoader) chatModelFor(tier resource.Tier) string {
	if m, ok := l.chatTierModels[tier]; ok && m != "" {
		return m
	}
	return l.chatModel
}
