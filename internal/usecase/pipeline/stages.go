package pipeline

import (
	"context"
	"fmt"

	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
)

// Stage name constants, in pipeline order.
const (
	StageExtract    = "extract"
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
	StageTest       = "test"
	StageIndex      = "index"
)

// indexBatchSize is the number of segments written per index round-trip.
const indexBatchSize = 16

// ExtractStage prepares the audio track from the uploaded recording.
type ExtractStage struct {
	Extractor AudioExtractor
}

// Name returns the stage name.
func (s *ExtractStage) Name() string { return StageExtract }

// Run extracts the audio reference for downstream stages.
func (s *ExtractStage) Run(ctx context.Context, sc *StageContext) error {
	audioRef, err := s.Extractor.Extract(ctx, sc.Rec.Filename)
	if err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	sc.Rec.AudioRef = audioRef
	sc.Report(1)
	return nil
}

// TranscribeStage runs speech-to-text against a pooled transcriber unit.
type TranscribeStage struct {
	Pool ResourcePool
	Key  resource.Key
}

// Name returns the stage name.
func (s *TranscribeStage) Name() string { return StageTranscribe }

// Run borrows a transcriber unit, transcribes, and stores transcript plus
// segments. The handle is released on every exit path.
func (s *TranscribeStage) Run(ctx context.Context, sc *StageContext) error {
	h, err := s.Pool.Acquire(ctx, s.Key)
	if err != nil {
		return err
	}
	defer s.Pool.Release(h)

	tr, ok := h.Unit().(Transcriber)
	if !ok {
		return fmt.Errorf("unit %s does not implement transcription", s.Key)
	}

	sc.Report(0.05) // model ready, audio queued

	transcript, segments, err := tr.Transcribe(ctx, sc.Rec.AudioRef)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	sc.Rec.Transcript = transcript
	sc.Rec.Segments = segments
	return nil
}

// SummarizeStage produces summary, article, and key points.
type SummarizeStage struct {
	Pool ResourcePool
	Key  resource.Key
}

// Name returns the stage name.
func (s *SummarizeStage) Name() string { return StageSummarize }

// Run borrows a summarizer unit and stores its outputs.
func (s *SummarizeStage) Run(ctx context.Context, sc *StageContext) error {
	h, err := s.Pool.Acquire(ctx, s.Key)
	if err != nil {
		return err
	}
	defer s.Pool.Release(h)

	sum, ok := h.Unit().(Summarizer)
	if !ok {
		return fmt.Errorf("unit %s does not implement summarization", s.Key)
	}

	sc.Report(0.05)

	out, err := sum.Summarize(ctx, sc.Rec.Transcript)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	sc.Rec.Summary = out.Summary
	sc.Rec.Article = out.Article
	sc.Rec.KeyPoints = out.KeyPoints
	return nil
}

// TestStage generates comprehension questions.
type TestStage struct {
	Pool ResourcePool
	Key  resource.Key
}

// Name returns the stage name.
func (s *TestStage) Name() string { return StageTest }

// Run borrows a generator unit and stores the generated questions.
func (s *TestStage) Run(ctx context.Context, sc *StageContext) error {
	h, err := s.Pool.Acquire(ctx, s.Key)
	if err != nil {
		return err
	}
	defer s.Pool.Release(h)

	gen, ok := h.Unit().(TestGenerator)
	if !ok {
		return fmt.Errorf("unit %s does not implement test generation", s.Key)
	}

	sc.Report(0.05)

	questions, err := gen.Generate(ctx, sc.Rec.Transcript, sc.Rec.KeyPoints)
	if err != nil {
		return fmt.Errorf("generate test: %w", err)
	}
	sc.Rec.Questions = questions
	return nil
}

// IndexStage writes transcript segments into the retrieval indexes in
// batches, reporting real intra-stage progress.
type IndexStage struct {
	Indexer SegmentIndexer
}

// Name returns the stage name.
func (s *IndexStage) Name() string { return StageIndex }

// Run indexes segments batch by batch.
func (s *IndexStage) Run(ctx context.Context, sc *StageContext) error {
	segments := sc.Rec.Segments
	if len(segments) == 0 {
		sc.Report(1)
		return nil
	}

	for start := 0; start < len(segments); start += indexBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+indexBatchSize, len(segments))
		if err := s.Indexer.IndexSegments(ctx, sc.Rec.ID, segments[start:end]); err != nil {
			return fmt.Errorf("index segments %d..%d: %w", start, end, err)
		}
		sc.Report(float64(end) / float64(len(segments)))
	}
	return nil
}
