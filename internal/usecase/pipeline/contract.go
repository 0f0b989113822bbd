package pipeline

import (
	"context"

	"github.com/GitHub-HackDay/sumview/internal/domain/job"
	"github.com/GitHub-HackDay/sumview/internal/domain/recording"
	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
	"github.com/GitHub-HackDay/sumview/internal/usecase/pool"
)

// StageContext carries the mutable job artifacts and the progress callback
// into a stage invocation. Report takes the stage's internal fraction in
// [0,1]; the coordinator recomputes overall progress from it.
type StageContext struct {
	Rec    *recording.Recording
	Report func(fraction float64)
}

// Stage is one discrete phase of the pipeline. Run must honor ctx
// cancellation and release every acquired resource on all exit paths.
type Stage interface {
	Name() string
	Run(ctx context.Context, sc *StageContext) error
}

// ResourcePool lends computation units to stages.
type ResourcePool interface {
	Acquire(ctx context.Context, key resource.Key) (*pool.Handle, error)
	Release(h *pool.Handle)
}

// AudioExtractor prepares a playable audio reference from an uploaded file.
type AudioExtractor interface {
	Extract(ctx context.Context, ref string) (string, error)
}

// Transcriber converts audio into text with timestamped segments.
// Implemented by pooled transcriber units.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, []recording.Segment, error)
}

// Summarizer produces summary, article, and key points from a transcript.
// Implemented by pooled summarizer units.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (recording.Summary, error)
}

// TestGenerator produces comprehension questions from a transcript.
// Implemented by pooled generator units.
type TestGenerator interface {
	Generate(ctx context.Context, transcript string, keyPoints []string) ([]recording.Question, error)
}

// SegmentIndexer writes transcript segments into the retrieval indexes.
// May be called multiple times per recording; writes are additive.
type SegmentIndexer interface {
	IndexSegments(ctx context.Context, recordingID string, segments []recording.Segment) error
}

// RecordingWriter persists recording artifacts.
type RecordingWriter interface {
	Save(ctx context.Context, rec *recording.Recording) error
}

// ProgressSink receives progress snapshots for live observers.
type ProgressSink interface {
	Publish(jobID string, snap job.Snapshot)
	Close(jobID string)
}
