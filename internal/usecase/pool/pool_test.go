package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
)

var testKey = resource.MustKey(resource.KindTranscriber, resource.TierSmall)

func TestAcquire_ReusesCachedUnit(t *testing.T) {
	loader := &fakeLoader{}
	p := New(loader, Options{DefaultLimit: 1})
	ctx := context.Background()

	h1, err := p.Acquire(ctx, testKey)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	p.Release(h1)

	h2, err := p.Acquire(ctx, testKey)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	p.Release(h2)

	if got := loader.loadCount(); got != 1 {
		t.Fatalf("loads = %d, want 1", got)
	}
	if h1.Unit() != h2.Unit() {
		t.Fatal("acquires returned different units")
	}
}

func TestAcquire_ConcurrentSingleLoad(t *testing.T) {
	loader := &fakeLoader{blockLoad: make(chan struct{})}
	p := New(loader, Options{DefaultLimit: 1})
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	handles := make([]*Handle, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = p.Acquire(ctx, testKey)
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let one loader win the gate
	close(loader.blockLoad)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if got := loader.loadCount(); got != 1 {
		t.Fatalf("loads = %d, want exactly 1 for concurrent acquires", got)
	}
	for _, h := range handles {
		if h.Unit() != handles[0].Unit() {
			t.Fatal("concurrent acquires returned different units")
		}
		p.Release(h)
	}
}

func TestAcquire_GateBoundsParallelLoads(t *testing.T) {
	// A failing loader never populates the cache, so every acquire must pass
	// the gate and load; the gate caps how many do so at once.
	loadErr := errors.New("model server busy")
	loader := &fakeLoader{
		blockLoad: make(chan struct{}),
		loadFn: func(context.Context, resource.Key) (Unit, error) {
			return nil, loadErr
		},
	}
	p := New(loader, Options{
		Limits: map[resource.Kind]int{resource.KindTranscriber: 2},
	})
	ctx := context.Background()

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Acquire(ctx, testKey)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(loader.blockLoad)
	wg.Wait()

	if got := loader.peakParallel(); got > 2 {
		t.Fatalf("peak parallel loads = %d, want <= 2", got)
	}
	if got := loader.loadCount(); got != n {
		t.Fatalf("loads = %d, want %d (failed loads are not cached)", got, n)
	}
}

func TestAcquire_LoadFailureWrapsExhausted(t *testing.T) {
	cause := errors.New("out of GPU memory")
	loader := &fakeLoader{
		loadFn: func(context.Context, resource.Key) (Unit, error) {
			return nil, cause
		},
	}
	p := New(loader, Options{DefaultLimit: 1})

	_, err := p.Acquire(context.Background(), testKey)
	if !errors.Is(err, domain.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}

	var ex *domain.ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected ExhaustedError, got %T", err)
	}
	if ex.Key != testKey {
		t.Errorf("key = %s, want %s", ex.Key, testKey)
	}
	if !errors.Is(ex.Cause, cause) {
		t.Errorf("cause = %v", ex.Cause)
	}
}

func TestAcquire_ContextCancelledAtGate(t *testing.T) {
	loader := &fakeLoader{blockLoad: make(chan struct{})}
	defer close(loader.blockLoad)
	p := New(loader, Options{DefaultLimit: 1})

	// First acquire occupies the gate inside a blocked load.
	go func() { _, _ = p.Acquire(context.Background(), testKey) }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Acquire(ctx, testKey); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRelease_DoubleReleaseIsNoop(t *testing.T) {
	loader := &fakeLoader{}
	p := New(loader, Options{DefaultLimit: 1})
	ctx := context.Background()

	h1, _ := p.Acquire(ctx, testKey)
	h2, _ := p.Acquire(ctx, testKey)

	p.Release(h1)
	p.Release(h1) // must not steal h2's reference

	// refs should still be 1; the unit must survive eviction while borrowed.
	time.Sleep(2 * time.Millisecond)
	if evicted := p.EvictIdle(time.Nanosecond); evicted != 0 {
		t.Fatalf("evicted %d units while one was still borrowed", evicted)
	}
	p.Release(h2)
}

func TestEvictIdle_RemovesIdleKeepsBusy(t *testing.T) {
	loader := &fakeLoader{}
	p := New(loader, Options{DefaultLimit: 1})
	ctx := context.Background()

	idleKey := resource.MustKey(resource.KindSummarizer, resource.TierSmall)
	busyKey := resource.MustKey(resource.KindGenerator, resource.TierSmall)

	hIdle, _ := p.Acquire(ctx, idleKey)
	idleUnit := hIdle.Unit().(*fakeUnit)
	p.Release(hIdle)

	hBusy, _ := p.Acquire(ctx, busyKey)
	busyUnit := hBusy.Unit().(*fakeUnit)

	time.Sleep(2 * time.Millisecond)
	if evicted := p.EvictIdle(time.Nanosecond); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if idleUnit.closed.Load() != 1 {
		t.Error("idle unit not closed")
	}
	if busyUnit.closed.Load() != 0 {
		t.Error("borrowed unit closed")
	}
	p.Release(hBusy)

	// Next acquire of the evicted key loads again.
	h, err := p.Acquire(ctx, idleKey)
	if err != nil {
		t.Fatalf("acquire after eviction: %v", err)
	}
	if h.Unit() == Unit(idleUnit) {
		t.Fatal("evicted unit was handed out again")
	}
	p.Release(h)
}

func TestEvictIdle_DisabledForZeroMaxIdle(t *testing.T) {
	loader := &fakeLoader{}
	p := New(loader, Options{DefaultLimit: 1})

	h, _ := p.Acquire(context.Background(), testKey)
	p.Release(h)

	if evicted := p.EvictIdle(0); evicted != 0 {
		t.Fatalf("evicted = %d with maxIdle 0", evicted)
	}
}

func TestClose_ClosesAllUnits(t *testing.T) {
	loader := &fakeLoader{}
	p := New(loader, Options{DefaultLimit: 1})
	ctx := context.Background()

	keys := []resource.Key{
		resource.MustKey(resource.KindTranscriber, resource.TierSmall),
		resource.MustKey(resource.KindEmbedder, resource.TierSmall),
	}
	units := make([]*fakeUnit, 0, len(keys))
	for _, k := range keys {
		h, err := p.Acquire(ctx, k)
		if err != nil {
			t.Fatalf("acquire %s: %v", k, err)
		}
		units = append(units, h.Unit().(*fakeUnit))
		p.Release(h)
	}

	p.Close()
	for _, u := range units {
		if u.closed.Load() != 1 {
			t.Errorf("unit %s closed %d times, want 1", u.id, u.closed.Load())
		}
	}
}
