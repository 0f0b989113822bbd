// Package pipeline implements the stage coordinator: it drives a job's
// ordered stage list, computes weighted overall progress, streams snapshots
// to observers, and enforces cancellation and failure semantics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/domain/job"
	"github.com/GitHub-HackDay/sumview/internal/domain/recording"
	"github.com/GitHub-HackDay/sumview/internal/metrics"
)

// Options configures a Coordinator.
type Options struct {
	// DefaultWeights is used when StartJob is called without a weight table.
	DefaultWeights map[string]float64
	// MinPublishDelta throttles intra-stage snapshot publication by overall
	// percent moved. Boundary and terminal snapshots always publish.
	MinPublishDelta float64
	// StageTimeout bounds each stage's execution; zero disables it.
	StageTimeout time.Duration
	Logger       *zap.Logger
}

// Coordinator runs jobs through an ordered stage list. Jobs run concurrently
// with each other; stages within a job run strictly in order.
type Coordinator struct {
	mu   sync.Mutex
	jobs map[string]*track

	stages         []Stage
	defaultWeights map[string]float64
	sink           ProgressSink
	store          RecordingWriter
	minDelta       float64
	stageTimeout   time.Duration
	logger         *zap.Logger
}

// track is the coordinator's bookkeeping for one job.
type track struct {
	job           *job.Job
	rec           *recording.Recording
	artifacts     *recording.Recording // copy refreshed at stage boundaries
	cancel        context.CancelFunc
	lastPublished float64
	done          chan struct{}
}

// New creates a coordinator over the given ordered stages.
func New(stages []Stage, sink ProgressSink, store RecordingWriter, opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	minDelta := opts.MinPublishDelta
	if minDelta <= 0 {
		minDelta = 1.0
	}
	return &Coordinator{
		jobs:           make(map[string]*track),
		stages:         stages,
		defaultWeights: opts.DefaultWeights,
		sink:           sink,
		store:          store,
		minDelta:       minDelta,
		stageTimeout:   opts.StageTimeout,
		logger:         log,
	}
}

// StartJob validates the weight table, registers a job, and runs it in the
// background. weights may be nil to use the coordinator's defaults; when
// given, it must cover the registered stages exactly and sum to 1.0.
func (c *Coordinator) StartJob(ctx context.Context, recordingRef string, weights map[string]float64) (string, error) {
	if recordingRef == "" {
		return "", fmt.Errorf("recording reference is required")
	}
	if weights == nil {
		weights = c.defaultWeights
	}
	if len(weights) != len(c.stages) {
		return "", fmt.Errorf("%w: got %d weights for %d stages",
			domain.ErrInvalidWeights, len(weights), len(c.stages))
	}

	stages := make([]job.Stage, 0, len(c.stages))
	for _, st := range c.stages {
		w, ok := weights[st.Name()]
		if !ok {
			return "", fmt.Errorf("%w: missing weight for stage %s", domain.ErrInvalidWeights, st.Name())
		}
		s, err := job.NewStage(st.Name(), w)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidWeights, err)
		}
		stages = append(stages, s)
	}

	id := uuid.NewString()
	j, err := job.New(id, recordingRef, stages)
	if err != nil {
		return "", err
	}

	// The job outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	t := &track{
		job:    j,
		rec:    recording.New(id, recordingRef),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.jobs[id] = t
	c.mu.Unlock()

	c.logger.Info("job started",
		zap.String("job_id", id),
		zap.String("recording", recordingRef),
		zap.Int("stages", len(stages)),
	)

	go c.run(runCtx, t)
	return id, nil
}

// Status returns the job's current progress snapshot.
func (c *Coordinator) Status(jobID string) (job.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.jobs[jobID]
	if !ok {
		return job.Snapshot{}, fmt.Errorf("job %s: %w", jobID, domain.ErrJobNotFound)
	}
	return t.job.Snapshot(), nil
}

// Cancel requests cooperative cancellation. The job transitions to cancelled
// at the next checkpoint; already-acquired resources are still released.
// Cancelling a terminal job is a no-op.
func (c *Coordinator) Cancel(jobID string) error {
	c.mu.Lock()
	t, ok := c.jobs[jobID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("job %s: %w", jobID, domain.ErrJobNotFound)
	}
	terminal := t.job.Status().IsTerminal()
	c.mu.Unlock()

	if terminal {
		return nil
	}
	t.cancel()
	return nil
}

// Artifacts returns the artifacts produced by the job's completed stages.
// Partial outputs remain available after failure or cancellation.
func (c *Coordinator) Artifacts(jobID string) (*recording.Recording, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrJobNotFound)
	}
	if t.artifacts == nil {
		cp := *recording.New(t.rec.ID, t.rec.Filename)
		return &cp, nil
	}
	cp := *t.artifacts
	return &cp, nil
}

// Wait blocks until the job's run loop has finished. Test hook.
func (c *Coordinator) Wait(jobID string) {
	c.mu.Lock()
	t, ok := c.jobs[jobID]
	c.mu.Unlock()
	if ok {
		<-t.done
	}
}

// run drives the job through its stages sequentially.
func (c *Coordinator) run(ctx context.Context, t *track) {
	defer close(t.done)
	jobID := t.job.ID()
	defer c.sink.Close(jobID)

	for i, st := range c.stages {
		if ctx.Err() != nil {
			c.finishCancelled(t)
			return
		}

		c.mu.Lock()
		if err := t.job.StartStage(i); err != nil {
			c.mu.Unlock()
			c.logger.Error("start stage", zap.String("job_id", jobID), zap.Error(err))
			return
		}
		snap := t.job.Snapshot()
		c.mu.Unlock()
		c.publish(t, snap, true)

		if err := c.runStage(ctx, t, st); err != nil {
			c.finishFailed(ctx, t, st.Name(), err)
			return
		}

		c.mu.Lock()
		t.job.CompleteStage()
		cp := *t.rec
		t.artifacts = &cp
		snap = t.job.Snapshot()
		c.mu.Unlock()
		c.publish(t, snap, true)

		c.persist(ctx, t)
	}

	if ctx.Err() != nil {
		c.finishCancelled(t)
		return
	}

	c.mu.Lock()
	t.job.Complete()
	snap := t.job.Snapshot()
	c.mu.Unlock()
	c.publish(t, snap, true)

	metrics.JobsTotal.WithLabelValues(string(job.StatusCompleted)).Inc()
	c.logger.Info("job completed", zap.String("job_id", jobID))
}

// runStage executes one stage with its optional timeout and progress wiring.
func (c *Coordinator) runStage(ctx context.Context, t *track, st Stage) error {
	sctx := ctx
	var cancel context.CancelFunc
	if c.stageTimeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, c.stageTimeout)
		defer cancel()
	}

	sc := &StageContext{
		Rec: t.rec,
		Report: func(f float64) {
			c.mu.Lock()
			t.job.ReportFraction(f)
			snap := t.job.Snapshot()
			c.mu.Unlock()
			c.publish(t, snap, false)
		},
	}

	start := time.Now()
	err := st.Run(sctx, sc)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StageDuration.WithLabelValues(st.Name(), status).Observe(time.Since(start).Seconds())

	if err != nil && sctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return fmt.Errorf("%w after %s: %v", domain.ErrStageTimeout, c.stageTimeout, err)
	}
	return err
}

// finishFailed transitions the job to failed (or cancelled, when the
// failure was caused by the job's own cancellation) and publishes the
// terminal snapshot.
func (c *Coordinator) finishFailed(ctx context.Context, t *track, stage string, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		c.finishCancelled(t)
		return
	}

	wrapped := domain.NewStageError(stage, err)

	c.mu.Lock()
	t.job.Fail(wrapped)
	snap := t.job.Snapshot()
	c.mu.Unlock()
	c.publish(t, snap, true)

	metrics.JobsTotal.WithLabelValues(string(job.StatusFailed)).Inc()
	c.logger.Error("job failed",
		zap.String("job_id", t.job.ID()),
		zap.String("stage", stage),
		zap.Error(err),
	)
}

// finishCancelled transitions the job to cancelled, freezing progress.
func (c *Coordinator) finishCancelled(t *track) {
	c.mu.Lock()
	t.job.Cancel()
	snap := t.job.Snapshot()
	c.mu.Unlock()
	c.publish(t, snap, true)

	metrics.JobsTotal.WithLabelValues(string(job.StatusCancelled)).Inc()
	c.logger.Info("job cancelled", zap.String("job_id", t.job.ID()))
}

// publish pushes a snapshot, throttled by minDelta unless forced (stage
// boundaries, terminal transitions).
func (c *Coordinator) publish(t *track, snap job.Snapshot, force bool) {
	c.mu.Lock()
	if !force && snap.Overall-t.lastPublished < c.minDelta {
		c.mu.Unlock()
		return
	}
	if snap.Overall > t.lastPublished {
		t.lastPublished = snap.Overall
	}
	c.mu.Unlock()

	c.sink.Publish(snap.JobID, snap)
}

// persist saves the artifacts accumulated so far. Best-effort: a storage
// hiccup must not fail an otherwise healthy pipeline run.
func (c *Coordinator) persist(ctx context.Context, t *track) {
	if c.store == nil || ctx.Err() != nil {
		return
	}
	if err := c.store.Save(ctx, t.rec); err != nil {
		c.logger.Warn("persist artifacts",
			zap.String("job_id", t.job.ID()),
			zap.Error(err),
		)
	}
}
