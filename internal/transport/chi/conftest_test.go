package chi

import (
	"context"

	"github.com/GitHub-HackDay/sumview/internal/domain/job"
	"github.com/GitHub-HackDay/sumview/internal/domain/recording"
)

// mockPipeline is a scriptable stage coordinator.
type mockPipeline struct {
	startFn     func(ctx context.Context, recordingRef string, weights map[string]float64) (string, error)
	statusFn    func(jobID string) (job.Snapshot, error)
	cancelFn    func(jobID string) error
	artifactsFn func(jobID string) (*recording.Recording, error)
}

func (m *mockPipeline) StartJob(ctx context.Context, recordingRef string, weights map[string]float64) (string, error) {
	if m.startFn != nil {
		return m.startFn(ctx, recordingRef, weights)
	}
	return "", nil
}

func (m *mockPipeline) Status(jobID string) (job.Snapshot, error) {
	if m.statusFn != nil {
		return m.statusFn(jobID)
	}
	return job.Snapshot{}, nil
}

func (m *mockPipeline) Cancel(jobID string) error {
	if m.cancelFn != nil {
		return m.cancelFn(jobID)
	}
	return nil
}

func (m *mockPipeline) Artifacts(jobID string) (*recording.Recording, error) {
	if m.artifactsFn != nil {
		return m.artifactsFn(jobID)
	}
	return nil, nil
}

// mockProgress is a scriptable snapshot source.
type mockProgress struct {
	subscribeFn func(jobID string) (<-chan job.Snapshot, func())
}

func (m *mockProgress) Subscribe(jobID string) (<-chan job.Snapshot, func()) {
	return m.subscribeFn(jobID)
}
