package chi

import (
	"context"
	"io"

	"github.com/GitHub-HackDay/sumview/internal/domain/job"
	"github.com/GitHub-HackDay/sumview/internal/domain/recording"
)

// Pipeline is the consumer interface for the stage coordinator.
type Pipeline interface {
	StartJob(ctx context.Context, recordingRef string, weights map[string]float64) (string, error)
	Status(jobID string) (job.Snapshot, error)
	Cancel(jobID string) error
	Artifacts(jobID string) (*recording.Recording, error)
}

// RecordingStore is the consumer interface for persisted recordings.
type RecordingStore interface {
	Get(ctx context.Context, id string) (*recording.Recording, error)
	List(ctx context.Context) ([]*recording.Recording, error)
	Delete(ctx context.Context, id string) error
}

// UploadStore spools uploaded files to local storage.
type UploadStore interface {
	SaveUpload(filename string, r io.Reader) (string, error)
}

// ProgressSource delivers live job snapshots to SSE watchers.
type ProgressSource interface {
	Subscribe(jobID string) (<-chan job.Snapshot, func())
}
