package job

import (
	"fmt"
	"math"
	"time"

	"github.com/GitHub-HackDay/sumview/internal/domain"
)

// WeightTolerance is the allowed deviation of the stage weight sum from 1.0.
const WeightTolerance = 1e-6

// Status is the lifecycle state of a job.
type Status string

// Job status constants.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// StageStatus is the lifecycle state of a single stage.
type StageStatus string

// Stage status constants.
const (
	StagePending StageStatus = "pending"
	StageRunning StageStatus = "running"
	StageDone    StageStatus = "done"
	StageFailed  StageStatus = "failed"
)

// Stage is one weighted phase of a job's pipeline.
type Stage struct {
	name     string
	weight   float64
	fraction float64
	status   StageStatus
}

// NewStage creates a pending stage with the given weight.
func NewStage(name string, weight float64) (Stage, error) {
	if name == "" {
		return Stage{}, fmt.Errorf("stage name is required")
	}
	if weight <= 0 || weight > 1 {
		return Stage{}, fmt.Errorf("stage %s: weight must be in (0,1], got %g", name, weight)
	}
	return Stage{name: name, weight: weight, status: StagePending}, nil
}

// Name returns the stage name.
func (s *Stage) Name() string { return s.name }

// Weight returns the stage's share of overall progress.
func (s *Stage) Weight() float64 { return s.weight }

// Fraction returns the stage's internal progress in [0,1].
func (s *Stage) Fraction() float64 { return s.fraction }

// Status returns the stage status.
func (s *Stage) Status() StageStatus { return s.status }

// Job is one pipeline run over a recording. Not safe for concurrent use;
// the coordinator serializes all access.
type Job struct {
	id           string
	recordingRef string
	stages       []Stage
	current      int
	status       Status
	err          error
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates a pending job, validating that stage weights sum to 1.0
// within WeightTolerance.
func New(id, recordingRef string, stages []Stage) (*Job, error) {
	if id == "" {
		return nil, fmt.Errorf("job id is required")
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: stage list is empty", domain.ErrInvalidWeights)
	}

	var sum float64
	for i := range stages {
		sum += stages[i].weight
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return nil, fmt.Errorf("%w: weights sum to %g, want 1.0", domain.ErrInvalidWeights, sum)
	}

	now := time.Now()
	return &Job{
		id:           id,
		recordingRef: recordingRef,
		stages:       stages,
		current:      -1,
		status:       StatusPending,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// RecordingRef returns the recording reference the job processes.
func (j *Job) RecordingRef() string { return j.recordingRef }

// Status returns the job status.
func (j *Job) Status() Status { return j.status }

// Err returns the terminal error, if any.
func (j *Job) Err() error { return j.err }

// Stages returns the job's stage list.
func (j *Job) Stages() []Stage { return j.stages }

// CurrentStage returns the stage currently running, or nil when none is.
func (j *Job) CurrentStage() *Stage {
	if j.current < 0 || j.current >= len(j.stages) {
		return nil
	}
	return &j.stages[j.current]
}

// StartStage transitions stage i to running and the job to running.
func (j *Job) StartStage(i int) error {
	if j.status.IsTerminal() {
		return fmt.Errorf("job %s is %s", j.id, j.status)
	}
	if i < 0 || i >= len(j.stages) {
		return fmt.Errorf("stage index %d out of range", i)
	}
	j.current = i
	j.stages[i].status = StageRunning
	j.status = StatusRunning
	j.updatedAt = time.Now()
	return nil
}

// ReportFraction records the current stage's internal progress. Regressions
// are ignored so overall percent stays monotonic; values are clamped to [0,1].
func (j *Job) ReportFraction(f float64) {
	s := j.CurrentStage()
	if s == nil || s.status != StageRunning {
		return
	}
	f = math.Min(math.Max(f, 0), 1)
	if f <= s.fraction {
		return
	}
	s.fraction = f
	j.updatedAt = time.Now()
}

// CompleteStage marks the current stage done with fraction 1.
func (j *Job) CompleteStage() {
	s := j.CurrentStage()
	if s == nil {
		return
	}
	s.fraction = 1
	s.status = StageDone
	j.updatedAt = time.Now()
}

// Complete transitions the job to completed.
func (j *Job) Complete() {
	if j.status.IsTerminal() {
		return
	}
	j.status = StatusCompleted
	j.updatedAt = time.Now()
}

// Fail marks the current stage failed and the job failed with err.
// Progress is frozen, not regressed.
func (j *Job) Fail(err error) {
	if j.status.IsTerminal() {
		return
	}
	if s := j.CurrentStage(); s != nil && s.status == StageRunning {
		s.status = StageFailed
	}
	j.status = StatusFailed
	j.err = err
	j.updatedAt = time.Now()
}

// Cancel transitions the job to cancelled. Progress is frozen.
func (j *Job) Cancel() {
	if j.status.IsTerminal() {
		return
	}
	j.status = StatusCancelled
	j.err = domain.ErrJobCancelled
	j.updatedAt = time.Now()
}

// Overall computes the weighted overall progress as a percentage in [0,100]:
// the sum of done stage weights plus the running stage's weight scaled by its
// internal fraction.
func (j *Job) Overall() float64 {
	var sum float64
	for i := range j.stages {
		s := &j.stages[i]
		switch s.status {
		case StageDone:
			sum += s.weight
		case StageRunning, StageFailed:
			sum += s.weight * s.fraction
		case StagePending:
		}
	}
	pct := sum * 100
	return math.Min(math.Max(pct, 0), 100)
}

// Snapshot captures the observable progress of a job at one instant.
type Snapshot struct {
	JobID        string
	Status       Status
	Overall      float64
	Stage        string
	StagePercent float64
	Error        string
	At           time.Time
}

// Snapshot renders the job's current progress.
func (j *Job) Snapshot() Snapshot {
	snap := Snapshot{
		JobID:   j.id,
		Status:  j.status,
		Overall: j.Overall(),
		At:      j.updatedAt,
	}
	if s := j.CurrentStage(); s != nil {
		snap.Stage = s.name
		snap.StagePercent = s.fraction * 100
	}
	if j.err != nil {
		snap.Error = j.err.Error()
	}
	return snap
}
