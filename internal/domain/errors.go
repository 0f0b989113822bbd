package domain

import (
	"errors"
	"fmt"

	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
)

var (
	// ErrResourceExhausted signals that the pool could not provision a unit.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrJobNotFound signals a missing job.
	ErrJobNotFound = errors.New("job not found")
	// ErrRecordingNotFound signals a missing recording.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrInvalidWeights signals a stage weight table that does not sum to one.
	ErrInvalidWeights = errors.New("invalid stage weights")
	// ErrIndexUnavailable signals that every retrieval backend is unreachable.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrStageTimeout signals a stage that exceeded its configured deadline.
	ErrStageTimeout = errors.New("stage timeout")
	// ErrJobCancelled signals a cooperatively cancelled job.
	ErrJobCancelled = errors.New("job cancelled")
	// ErrProviderError signals an AI provider failure.
	ErrProviderError = errors.New("provider error")
)

// ExhaustedError wraps ErrResourceExhausted with the key that failed to load.
type ExhaustedError struct {
	Key   resource.Key
	Cause error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrResourceExhausted.Error(), e.Key, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return ErrResourceExhausted }

// NewExhausted creates a resource exhaustion error for the given key.
func NewExhausted(key resource.Key, cause error) error {
	return &ExhaustedError{Key: key, Cause: cause}
}

// StageError wraps a stage failure with the stage name for job diagnostics.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the failing stage name.
func NewStageError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}
