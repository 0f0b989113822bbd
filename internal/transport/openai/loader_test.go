package openai

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
)

func testLoader() *ModelLoader {
	client := NewClient(&Config{APIKey: "test-key", Logger: zap.NewNop()})
	return NewModelLoader(client, &Config{
		ChatModel:      "gpt-4o-mini",
		WhisperModel:   "whisper-1",
		EmbeddingModel: "text-embedding-3-small",
		Dimensions:     1536,
	})
}

func TestLoad_ProvisionsUnitPerKind(t *testing.T) {
	loader := testLoader()

	for _, kind := range []resource.Kind{
		resource.KindTranscriber,
		resource.KindSummarizer,
		resource.KindGenerator,
		resource.KindEmbedder,
	} {
		t.Run(string(kind), func(t *testing.T) {
			unit, err := loader.Load(context.Background(), resource.MustKey(kind, resource.TierSmall))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			var ok bool
			switch kind {
			case resource.KindTranscriber:
				_, ok = unit.(*Transcriber)
			case resource.KindSummarizer:
				_, ok = unit.(*Summarizer)
			case resource.KindGenerator:
				_, ok = unit.(*Generator)
			case resource.KindEmbedder:
				_, ok = unit.(*Embedder)
			}
			if !ok {
				t.Errorf("unexpected unit type %T for kind %s", unit, kind)
			}
		})
	}
}

func TestLoad_UnknownKind(t *testing.T) {
	loader := testLoader()

	if _, err := loader.Load(context.Background(), resource.Key{}); err == nil {
		t.Fatal("expected error for zero-value key")
	}
}

func TestLoad_TierOverridesChatModel(t *testing.T) {
	loader := testLoader().WithChatTierModels(map[resource.Tier]string{
		resource.TierLarge: "gpt-4o",
	})

	unit, err := loader.Load(context.Background(), resource.MustKey(resource.KindSummarizer, resource.TierLarge))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s, ok := unit.(*Summarizer)
	if !ok {
		t.Fatalf("unit = %T", unit)
	}
	if s.model != "gpt-4o" {
		t.Errorf("model = %q, want tier override", s.model)
	}

	small, err := loader.Load(context.Background(), resource.MustKey(resource.KindSummarizer, resource.TierSmall))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if small.(*Summarizer).model != "gpt-4o-mini" {
		t.Errorf("model = %q, want configured default", small.(*Summarizer).model)
	}
}
