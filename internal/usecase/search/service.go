// Package search implements the hybrid retrieval engine: parallel fan-out
// to the semantic and lexical indexes, weighted score fusion, and
// degraded-mode handling when one backend is unreachable.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/domain/search/request"
	"github.com/GitHub-HackDay/sumview/internal/domain/search/result"
	"github.com/GitHub-HackDay/sumview/internal/domain/search/source"
	"github.com/GitHub-HackDay/sumview/internal/metrics"
)

// Options configures the fusion weights and candidate over-fetch.
type Options struct {
	// Alpha weighs the semantic component, Beta the lexical one.
	Alpha float64
	Beta  float64
	// CandidateFactor multiplies the requested limit when querying each
	// backend, so fusion has enough overlap to work with.
	CandidateFactor int
	Logger          *zap.Logger
}

// Service answers hybrid search queries.
type Service struct {
	semantic SemanticIndex
	lexical  LexicalIndex
	alpha    float64
	beta     float64
	factor   int
	logger   *zap.Logger
}

// New creates a hybrid search service.
func New(semantic SemanticIndex, lexical LexicalIndex, opts Options) *Service {
	alpha, beta := opts.Alpha, opts.Beta
	if alpha == 0 && beta == 0 {
		alpha, beta = 0.7, 0.3
	}
	factor := opts.CandidateFactor
	if factor <= 0 {
		factor = 2
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		semantic: semantic,
		lexical:  lexical,
		alpha:    alpha,
		beta:     beta,
		factor:   factor,
		logger:   log,
	}
}

// Search fans the query out to both indexes in parallel, fuses the scored
// candidates, and returns the top results. A single unreachable backend
// degrades the result set instead of failing it; both backends down is an
// error.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Set, error) {
	k := req.Limit() * s.factor

	var (
		semHits []result.Scored
		lexHits []result.Scored
		semErr  error
		lexErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		semHits, semErr = s.semantic.QuerySemantic(gctx, req.Query(), req.RecordingID(), k)
		return nil
	})
	g.Go(func() error {
		lexHits, lexErr = s.lexical.QueryLexical(gctx, req.Query(), req.RecordingID(), k)
		return nil
	})
	_ = g.Wait() // goroutines record per-backend errors instead of failing the group

	if semErr != nil && lexErr != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return result.Set{}, fmt.Errorf("semantic: %v; lexical: %v: %w", semErr, lexErr, domain.ErrIndexUnavailable)
	}

	set := result.Set{}
	switch {
	case semErr != nil:
		set.Degraded = true
		set.FailedSource = source.Semantic
		s.logger.Warn("semantic index unavailable, degraded search", zap.Error(semErr))
		semHits = nil
	case lexErr != nil:
		set.Degraded = true
		set.FailedSource = source.Lexical
		s.logger.Warn("lexical index unavailable, degraded search", zap.Error(lexErr))
		lexHits = nil
	}

	set.Results = fuseWeighted(semHits, lexHits, s.alpha, s.beta, req.Limit())

	if set.Degraded {
		metrics.SearchRequestsTotal.WithLabelValues("degraded").Inc()
	} else {
		metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	}
	return set, nil
}
