package result

import "github.com/GitHub-HackDay/sumview/internal/domain/search/source"

// Scored is a single raw hit from one retrieval backend.
type Scored struct {
	id      string
	score   float64
	content string
	from    source.Source
}

// NewScored creates a raw scored item.
func NewScored(id string, score float64, content string, from source.Source) Scored {
	return Scored{id: id, score: score, content: content, from: from}
}

// ID returns the segment identifier.
func (s *Scored) ID() string { return s.id }

// Score returns the backend's raw relevance score.
func (s *Scored) Score() float64 { return s.score }

// Content returns the matched segment text.
func (s *Scored) Content() string { return s.content }

// Source returns the backend that produced the hit.
func (s *Scored) Source() source.Source { return s.from }

// Ranked is a single fused search hit.
type Ranked struct {
	id       string
	fused    float64
	semantic float64
	lexical  float64
	content  string
	rank     int
}

// NewRanked creates a fused search result. Component scores are the
// normalized per-source contributions; an absent source contributes zero.
func NewRanked(id string, fused, semantic, lexical float64, content string, rank int) Ranked {
	return Ranked{
		id: id, fused: fused,
		semantic: semantic, lexical: lexical,
		content: content, rank: rank,
	}
}

// ID returns the segment identifier.
func (r *Ranked) ID() string { return r.id }

// Fused returns the combined relevance score.
func (r *Ranked) Fused() float64 { return r.fused }

// Semantic returns the normalized semantic component score.
func (r *Ranked) Semantic() float64 { return r.semantic }

// Lexical returns the normalized lexical component score.
func (r *Ranked) Lexical() float64 { return r.lexical }

// Content returns the matched segment text.
func (r *Ranked) Content() string { return r.content }

// Rank returns the 1-based position in the fused ordering.
func (r *Ranked) Rank() int { return r.rank }

// Set is the outcome of one hybrid search.
type Set struct {
	Results []Ranked
	// Degraded is true when one backend was unreachable and results were
	// fused from the remaining source only.
	Degraded bool
	// FailedSource names the unreachable backend when Degraded is set.
	FailedSource source.Source
}
