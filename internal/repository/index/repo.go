// Package index maintains the FT segment index used by hybrid retrieval.
package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/GitHub-HackDay/sumview/internal/db"
	domrec "github.com/GitHub-HackDay/sumview/internal/domain/recording"
	"github.com/GitHub-HackDay/sumview/internal/domain/search/result"
	"github.com/GitHub-HackDay/sumview/internal/domain/search/source"
)

// Embedder turns segment text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// store is the consumer interface for the segment index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo indexes transcript segments and serves both retrieval backends.
type Repo struct {
	store  store
	embed  Embedder
	prefix string
	dim    int
}

// New creates a segment index repository. Hash keys are
// "<prefix>segment:<recordingID>:<index>" and the FT index is
// "<prefix>idx:segments". dim is the embedding dimensionality.
func New(s store, embed Embedder, prefix string, dim int) *Repo {
	return &Repo{store: s, embed: embed, prefix: prefix, dim: dim}
}

// IndexName returns the FT index name this repository manages.
func (r *Repo) IndexName() string {
	return r.prefix + "idx:segments"
}

// EnsureIndex creates the segment FT index if it does not already exist.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	name := r.IndexName()
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        name,
		StorageType: db.StorageHash,
		Prefixes:    []string{r.prefix + "segment:"},
		Fields: []db.IndexField{
			{Name: "content", Type: db.IndexFieldText},
			{Name: "recording_id", Type: db.IndexFieldTag},
			{Name: "start", Type: db.IndexFieldNumeric},
			{Name: "end", Type: db.IndexFieldNumeric},
			{
				Name:           "vector",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorHNSW,
				VectorDim:      r.dim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("segment index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// IndexSegments embeds and stores the given segments for one recording.
func (r *Repo) IndexSegments(ctx context.Context, recordingID string, segments []domrec.Segment) error {
	if len(segments) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(segments))
	for _, seg := range segments {
		vec, err := r.embed.Embed(ctx, seg.Text)
		if err != nil {
			return fmt.Errorf("embed segment %d of %s: %w", seg.Index, recordingID, err)
		}
		items = append(items, db.HashSetItem{
			Key: r.segmentKey(recordingID, seg.Index),
			Fields: map[string]string{
				"content":      seg.Text,
				"recording_id": recordingID,
				"start":        strconv.FormatFloat(seg.Start, 'f', -1, 64),
				"end":          strconv.FormatFloat(seg.End, 'f', -1, 64),
				"vector":       db.EncodeVector(vec),
			},
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store %d segments of %s: %w", len(items), recordingID, err)
	}
	return nil
}

// DeleteSegments removes all indexed segments of one recording.
func (r *Repo) DeleteSegments(ctx context.Context, recordingID string) error {
	keys, err := r.store.Scan(ctx, r.prefix+"segment:"+recordingID+":*")
	if err != nil {
		return fmt.Errorf("scan segments of %s: %w", recordingID, err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("del %s: %w", key, err)
		}
	}
	return nil
}

// QuerySemantic returns the k nearest segments to the query text by
// embedding similarity, optionally scoped to one recording.
func (r *Repo) QuerySemantic(ctx context.Context, text, recordingID string, k int) ([]result.Scored, error) {
	vec, err := r.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.IndexName(),
		Vector:       vec,
		K:            k,
		RecordingID:  recordingID,
		ReturnFields: []string{"content"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	return r.toScored(res, source.Semantic), nil
}

// QueryLexical returns the top k segments by BM25 text relevance,
// optionally scoped to one recording.
func (r *Repo) QueryLexical(ctx context.Context, text, recordingID string, k int) ([]result.Scored, error) {
	res, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.IndexName(),
		Query:        text,
		TopK:         k,
		RecordingID:  recordingID,
		ReturnFields: []string{"content"},
	})
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	return r.toScored(res, source.Lexical), nil
}

func (r *Repo) toScored(res *db.SearchResult, from source.Source) []result.Scored {
	if res == nil || len(res.Entries) == 0 {
		return nil
	}
	out := make([]result.Scored, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := strings.TrimPrefix(e.Key, r.prefix+"segment:")
		out = append(out, result.NewScored(id, e.Score, e.Fields["content"], from))
	}
	return out
}

func (r *Repo) segmentKey(recordingID string, index int) string {
	return r.prefix + "segment:" + recordingID + ":" + strconv.Itoa(index)
}
