package pool

import (
	"context"

	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
)

// Unit is a loaded computation object (a speech or language model instance).
// Close releases whatever the unit holds; called only by the pool on eviction
// or shutdown.
type Unit interface {
	Close() error
}

// Loader provisions a unit for a key. Loads are expensive; the pool bounds
// their concurrency per key and caches the outcome.
type Loader interface {
	Load(ctx context.Context, key resource.Key) (Unit, error)
}
