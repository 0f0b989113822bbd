// Package progress implements the per-job publish/subscribe channel for
// progress snapshots. The hub carries no pipeline logic; it only fans
// snapshots out to whoever is watching a job.
package progress

import (
	"sync"

	"github.com/GitHub-HackDay/sumview/internal/domain/job"
)

// subscriberBuffer is the channel depth per subscriber. A subscriber that
// falls further behind than this loses intermediate snapshots, never the
// publisher's pace.
const subscriberBuffer = 16

// Hub broadcasts job progress snapshots to subscribers.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[int]chan job.Snapshot
	nextID int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[int]chan job.Snapshot)}
}

// Subscribe registers a watcher for jobID. The returned cancel func must be
// called when the watcher is done; it is safe to call after Close.
func (h *Hub) Subscribe(jobID string) (<-chan job.Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[jobID]
	if !ok {
		subs = make(map[int]chan job.Snapshot)
		h.topics[jobID] = subs
	}

	id := h.nextID
	h.nextID++
	ch := make(chan job.Snapshot, subscriberBuffer)
	subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.topics[jobID]; ok {
			if ch, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.topics, jobID)
			}
		}
	}
	return ch, cancel
}

// Publish pushes a snapshot to every subscriber of the job. Non-blocking:
// a full subscriber channel drops the snapshot rather than stalling the
// pipeline.
func (h *Hub) Publish(jobID string, snap job.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.topics[jobID] {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close tears down the job's topic, closing all subscriber channels. Called
// by the coordinator once the job reaches a terminal status.
func (h *Hub) Close(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.topics[jobID] {
		close(ch)
	}
	delete(h.topics, jobID)
}
