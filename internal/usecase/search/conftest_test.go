package search

import (
	"context"

	"github.com/GitHub-HackDay/sumview/internal/domain/search/result"
)

// fakeIndex implements both retrieval backends for tests.
type fakeIndex struct {
	semanticFn func(ctx context.Context, text, recordingID string, k int) ([]result.Scored, error)
	lexicalFn  func(ctx context.Context, text, recordingID string, k int) ([]result.Scored, error)
}

func (f *fakeIndex) QuerySemantic(ctx context.Context, text, recordingID string, k int) ([]result.Scored, error) {
	if f.semanticFn != nil {
		return f.semanticFn(ctx, text, recordingID, k)
	}
	return nil, nil
}

func (f *fakeIndex) QueryLexical(ctx context.Context, text, recordingID string, k int) ([]result.Scored, error) {
	if f.lexicalFn != nil {
		return f.lexicalFn(ctx, text, recordingID, k)
	}
	return nil, nil
}
