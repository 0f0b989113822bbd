package pipeline

import (
	"context"
	"sync"

	"github.com/GitHub-HackDay/sumview/internal/domain/job"
	"github.com/GitHub-HackDay/sumview/internal/domain/recording"
	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
	"github.com/GitHub-HackDay/sumview/internal/usecase/pool"
)

// fakeStage is a scriptable pipeline stage.
type fakeStage struct {
	name  string
	runFn func(ctx context.Context, sc *StageContext) error

	mu   sync.Mutex
	runs int
}

func (s *fakeStage) Name() string { return s.name }

func (s *fakeStage) Run(ctx context.Context, sc *StageContext) error {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	if s.runFn != nil {
		return s.runFn(ctx, sc)
	}
	return nil
}

func (s *fakeStage) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// recordSink captures every published snapshot.
type recordSink struct {
	mu     sync.Mutex
	snaps  []job.Snapshot
	closed []string
}

func (r *recordSink) Publish(_ string, snap job.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *recordSink) Close(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, jobID)
}

func (r *recordSink) snapshots() []job.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]job.Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

// fakeWriter counts artifact persistence calls.
type fakeWriter struct {
	mu    sync.Mutex
	saves int
	fn    func(ctx context.Context, rec *recording.Recording) error
}

func (w *fakeWriter) Save(ctx context.Context, rec *recording.Recording) error {
	w.mu.Lock()
	w.saves++
	w.mu.Unlock()
	if w.fn != nil {
		return w.fn(ctx, rec)
	}
	return nil
}

func (w *fakeWriter) saveCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saves
}

// fakePool lends a scripted unit and counts the acquire/release balance.
type fakePool struct {
	mu         sync.Mutex
	unit       pool.Unit
	acquireErr error
	acquired   int
	released   int
}

func (p *fakePool) Acquire(ctx context.Context, key resource.Key) (*pool.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return pool.NewHandleForTest(key, p.unit), nil
}

func (p *fakePool) Release(h *pool.Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func (p *fakePool) balance() (acquired, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired, p.released
}

// closerUnit gives the typed unit fakes their no-op Close.
type closerUnit struct{}

func (closerUnit) Close() error { return nil }

type fakeTranscriberUnit struct {
	closerUnit
	fn func(ctx context.Context, audioRef string) (string, []recording.Segment, error)
}

func (u *fakeTranscriberUnit) Transcribe(ctx context.Context, audioRef string) (string, []recording.Segment, error) {
	return u.fn(ctx, audioRef)
}

type fakeSummarizerUnit struct {
	closerUnit
	fn func(ctx context.Context, transcript string) (recording.Summary, error)
}

func (u *fakeSummarizerUnit) Summarize(ctx context.Context, transcript string) (recording.Summary, error) {
	return u.fn(ctx, transcript)
}

type fakeGeneratorUnit struct {
	closerUnit
	fn func(ctx context.Context, transcript string, keyPoints []string) ([]recording.Question, error)
}

func (u *fakeGeneratorUnit) Generate(ctx context.Context, transcript string, keyPoints []string) ([]recording.Question, error) {
	return u.fn(ctx, transcript, keyPoints)
}

// fakeExtractor is a scriptable audio extractor.
type fakeExtractor struct {
	fn func(ctx context.Context, ref string) (string, error)
}

func (f *fakeExtractor) Extract(ctx context.Context, ref string) (string, error) {
	return f.fn(ctx, ref)
}

// fakeIndexer records every batch write; fn, if set, decides the outcome of
// the n-th batch (zero-based).
type fakeIndexer struct {
	mu      sync.Mutex
	recID   string
	batches [][]recording.Segment
	fn      func(batch int) error
}

func (f *fakeIndexer) IndexSegments(ctx context.Context, recordingID string, segments []recording.Segment) error {
	f.mu.Lock()
	f.recID = recordingID
	n := len(f.batches)
	cp := make([]recording.Segment, len(segments))
	copy(cp, segments)
	f.batches = append(f.batches, cp)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(n)
	}
	return nil
}

func (f *fakeIndexer) batchSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.batches))
	for i, b := range f.batches {
		sizes[i] = len(b)
	}
	return sizes
}
