// Package pool implements the bounded-concurrency cache of loaded
// computation units. Units are created at most once per key, reused across
// jobs, and optionally unloaded after sitting idle.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/domain/resource"
	"github.com/GitHub-HackDay/sumview/internal/metrics"
)

// Handle is a borrowed reference to a cached unit. Valid from Acquire until
// the matching Release; never retained across stage invocations.
type Handle struct {
	key      resource.Key
	unit     Unit
	released bool
}

// Key returns the resource key the handle was acquired for.
func (h *Handle) Key() resource.Key { return h.key }

// Unit returns the loaded unit.
func (h *Handle) Unit() Unit { return h.unit }

// entry tracks one key's cached unit and its admission gate.
type entry struct {
	unit       Unit
	refs       int
	lastAccess time.Time
	gate       *semaphore.Weighted
}

// Options configures a Pool.
type Options struct {
	// Limits bounds concurrent load operations per kind; kinds not listed
	// fall back to DefaultLimit.
	Limits       map[resource.Kind]int
	DefaultLimit int
	Logger       *zap.Logger
}

// Pool owns all loaded units. Constructed once per process and passed
// explicitly to its consumers.
type Pool struct {
	mu      sync.Mutex
	entries map[resource.Key]*entry

	loader       Loader
	limits       map[resource.Kind]int
	defaultLimit int
	logger       *zap.Logger
	now          func() time.Time
}

// New creates a pool around the given loader.
func New(loader Loader, opts Options) *Pool {
	limit := opts.DefaultLimit
	if limit <= 0 {
		limit = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		entries:      make(map[resource.Key]*entry),
		loader:       loader,
		limits:       opts.Limits,
		defaultLimit: limit,
		logger:       log,
		now:          time.Now,
	}
}

func (p *Pool) limitFor(kind resource.Kind) int64 {
	if n, ok := p.limits[kind]; ok && n > 0 {
		return int64(n)
	}
	return int64(p.defaultLimit)
}

// entryFor returns the entry for key, creating it (gate included) on first use.
// Caller must hold p.mu.
func (p *Pool) entryFor(key resource.Key) *entry {
	e, ok := p.entries[key]
	if !ok {
		e = &entry{gate: semaphore.NewWeighted(p.limitFor(key.Kind()))}
		p.entries[key] = e
	}
	return e
}

// Acquire returns a handle for the key, loading the unit if it is not cached.
// A cache hit bypasses the admission gate entirely. On a miss the caller must
// win a gate slot before loading; after winning it re-checks the cache so a
// unit produced by a concurrent loader is reused instead of duplicated.
func (p *Pool) Acquire(ctx context.Context, key resource.Key) (*Handle, error) {
	p.mu.Lock()
	e := p.entryFor(key)
	if e.unit != nil {
		h := p.borrowLocked(key, e)
		p.mu.Unlock()
		return h, nil
	}
	gate := e.gate
	p.mu.Unlock()

	if err := gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("admission gate for %s: %w", key, err)
	}
	defer gate.Release(1)

	// Double check: a concurrent acquire may have loaded while we waited.
	p.mu.Lock()
	if e.unit != nil {
		h := p.borrowLocked(key, e)
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()

	metrics.PoolInFlightLoads.WithLabelValues(string(key.Kind())).Inc()
	unit, err := p.loader.Load(ctx, key)
	metrics.PoolInFlightLoads.WithLabelValues(string(key.Kind())).Dec()

	if err != nil {
		metrics.PoolLoadsTotal.WithLabelValues(string(key.Kind()), string(key.Tier()), "error").Inc()
		return nil, domain.NewExhausted(key, err)
	}
	metrics.PoolLoadsTotal.WithLabelValues(string(key.Kind()), string(key.Tier()), "ok").Inc()

	var stale Unit
	p.mu.Lock()
	if e.unit == nil {
		e.unit = unit
		metrics.PoolLoadedUnits.WithLabelValues(string(key.Kind()), string(key.Tier())).Inc()
	} else {
		// Lost the race with another admitted loader: keep the cached unit.
		stale = unit
	}
	h := p.borrowLocked(key, e)
	p.mu.Unlock()

	if stale != nil {
		if cerr := stale.Close(); cerr != nil {
			p.logger.Warn("closing duplicate unit", zap.String("key", key.String()), zap.Error(cerr))
		}
	}
	return h, nil
}

// borrowLocked increments the refcount and builds a handle. Caller holds p.mu.
func (p *Pool) borrowLocked(key resource.Key, e *entry) *Handle {
	e.refs++
	e.lastAccess = p.now()
	return &Handle{key: key, unit: e.unit}
}

// Release returns a handle to the pool. The unit stays cached at refcount
// zero; eviction is time-based, not refcount-based. Releasing a handle twice
// is a no-op.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.released {
		return
	}
	h.released = true

	e, ok := p.entries[h.key]
	if !ok || e.refs == 0 {
		return
	}
	e.refs--
	e.lastAccess = p.now()
}

// EvictIdle unloads units with refcount zero whose last access is older than
// maxIdle. Returns the number of units evicted.
func (p *Pool) EvictIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}

	cutoff := p.now().Add(-maxIdle)
	var victims []struct {
		key  resource.Key
		unit Unit
	}

	p.mu.Lock()
	for key, e := range p.entries {
		if e.unit != nil && e.refs == 0 && e.lastAccess.Before(cutoff) {
			victims = append(victims, struct {
				key  resource.Key
				unit Unit
			}{key, e.unit})
			e.unit = nil
			metrics.PoolLoadedUnits.WithLabelValues(string(key.Kind()), string(key.Tier())).Dec()
		}
	}
	p.mu.Unlock()

	for _, v := range victims {
		if err := v.unit.Close(); err != nil {
			p.logger.Warn("closing evicted unit", zap.String("key", v.key.String()), zap.Error(err))
		} else {
			p.logger.Info("evicted idle unit", zap.String("key", v.key.String()))
		}
	}
	return len(victims)
}

// RunEvictor sweeps idle units every interval until ctx is cancelled.
// Intended to run as a goroutine from main when eviction is enabled.
func (p *Pool) RunEvictor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.EvictIdle(maxIdle)
		}
	}
}

// Close unloads every cached unit. Call on shutdown after all jobs stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	var units []struct {
		key  resource.Key
		unit Unit
	}
	for key, e := range p.entries {
		if e.unit != nil {
			units = append(units, struct {
				key  resource.Key
				unit Unit
			}{key, e.unit})
			e.unit = nil
			metrics.PoolLoadedUnits.WithLabelValues(string(key.Kind()), string(key.Tier())).Dec()
		}
	}
	p.mu.Unlock()

	for _, u := range units {
		if err := u.unit.Close(); err != nil {
			p.logger.Warn("closing unit on shutdown", zap.String("key", u.key.String()), zap.Error(err))
		}
	}
}
