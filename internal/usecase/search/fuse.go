package search

import (
	"sort"

	"github.com/GitHub-HackDay/sumview/internal/domain/search/result"
)

// fuseWeighted merges two independently-scored candidate lists into one
// deterministic ranking: normalize each source's scores, combine as
// alpha*semantic + beta*lexical, group by id, sort, truncate to limit.
// An item present in only one source contributes only that weighted term.
func fuseWeighted(semantic, lexical []result.Scored, alpha, beta float64, limit int) []result.Ranked {
	type merged struct {
		id       string
		semantic float64
		lexical  float64
		content  string
	}

	semNorm := normalizeScores(semantic)
	lexNorm := normalizeScores(lexical)

	byID := make(map[string]*merged, len(semantic)+len(lexical))

	for i := range semantic {
		s := &semantic[i]
		byID[s.ID()] = &merged{id: s.ID(), semantic: semNorm[i], content: s.Content()}
	}

	for i := range lexical {
		l := &lexical[i]
		if m, ok := byID[l.ID()]; ok {
			m.lexical = lexNorm[i]
			if m.content == "" {
				m.content = l.Content()
			}
		} else {
			byID[l.ID()] = &merged{id: l.ID(), lexical: lexNorm[i], content: l.Content()}
		}
	}

	items := make([]merged, 0, len(byID))
	for _, m := range byID {
		items = append(items, *m)
	}

	fused := func(m *merged) float64 {
		return alpha*m.semantic + beta*m.lexical
	}

	// Descending fused score; ties broken by semantic score, then id
	// ascending, so identical queries over unchanged indexes produce
	// identical orderings.
	sort.Slice(items, func(i, j int) bool {
		fi, fj := fused(&items[i]), fused(&items[j])
		if fi != fj {
			return fi > fj
		}
		if items[i].semantic != items[j].semantic {
			return items[i].semantic > items[j].semantic
		}
		return items[i].id < items[j].id
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	ranked := make([]result.Ranked, len(items))
	for i := range items {
		m := &items[i]
		ranked[i] = result.NewRanked(m.id, fused(m), m.semantic, m.lexical, m.content, i+1)
	}
	return ranked
}

// normalizeScores maps raw scores into [0,1]. Scores already in range are
// passed through unchanged (semantic similarities arrive in [0,1] and must
// keep their absolute meaning); unbounded scores (BM25) are scaled down by
// the list maximum.
func normalizeScores(items []result.Scored) []float64 {
	out := make([]float64, len(items))
	if len(items) == 0 {
		return out
	}

	ceiling := 1.0
	for i := range items {
		if s := items[i].Score(); s > ceiling {
			ceiling = s
		}
	}

	for i := range items {
		s := items[i].Score() / ceiling
		if s < 0 {
			s = 0
		}
		out[i] = s
	}
	return out
}
