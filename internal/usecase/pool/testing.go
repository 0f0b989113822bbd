package pool

import "github.com/GitHub-HackDay/sumview/internal/domain/resource"

// NewHandleForTest builds a handle around a unit without going through a
// pool. Intended for tests of handle consumers only.
func NewHandleForTest(key resource.Key, u Unit) *Handle {
	return &Handle{key: key, unit: u}
}
