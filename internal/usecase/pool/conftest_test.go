package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
)

// fakeUnit counts Close calls.
type fakeUnit struct {
	id     string
	closed atomic.Int32
}

func (u *fakeUnit) Close() error {
	u.closed.Add(1)
	return nil
}

// fakeLoader counts loads and tracks load parallelism.
type fakeLoader struct {
	mu        sync.Mutex
	loads     int
	inFlight  int
	maxLoads  int // peak parallel loads observed
	loadFn    func(ctx context.Context, key resource.Key) (Unit, error)
	blockLoad chan struct{} // when set, loads block until it is closed
}

func (l *fakeLoader) Load(ctx context.Context, key resource.Key) (Unit, error) {
	l.mu.Lock()
	l.loads++
	l.inFlight++
	if l.inFlight > l.maxLoads {
		l.maxLoads = l.inFlight
	}
	block := l.blockLoad
	l.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}

	defer func() {
		l.mu.Lock()
		l.inFlight--
		l.mu.Unlock()
	}()

	if l.loadFn != nil {
		return l.loadFn(ctx, key)
	}
	return &fakeUnit{id: key.String()}, nil
}

func (l *fakeLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *fakeLoader) peakParallel() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxLoads
}
