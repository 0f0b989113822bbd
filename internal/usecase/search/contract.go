package search

import (
	"context"

	"github.com/GitHub-HackDay/sumview/internal/domain/search/result"
)

// SemanticIndex answers vector similarity queries.
type SemanticIndex interface {
	QuerySemantic(ctx context.Context, text, recordingID string, k int) ([]result.Scored, error)
}

// LexicalIndex answers keyword/BM25 queries.
type LexicalIndex interface {
	QueryLexical(ctx context.Context, text, recordingID string, k int) ([]result.Scored, error)
}
