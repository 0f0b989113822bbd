package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GitHub-HackDay/sumview/internal/domain/job"
)

// StreamJobEvents handles GET /api/v1/jobs/{id}/events. Streams progress
// snapshots as server-sent events until the job reaches a terminal state or
// the client disconnects. The current snapshot is sent immediately so late
// subscribers never start blind.
func (s *Server) StreamJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	// Subscribe before reading status. The hub tears the topic down when the
	// job goes terminal; a transition between the two calls then surfaces in
	// the snapshot below instead of leaving the stream on a dead topic.
	events, cancel := s.progress.Subscribe(jobID)
	defer cancel()

	snap, err := s.pipeline.Status(jobID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternalError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, snap)
	flusher.Flush()
	if snap.Status.IsTerminal() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case next, open := <-events:
			if !open {
				return
			}
			writeEvent(w, next)
			flusher.Flush()
			if next.Status.IsTerminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, snap job.Snapshot) {
	data, err := json.Marshal(snapshotToDTO(snap))
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
}
