package request

import "fmt"

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Request is a validated search query.
type Request struct {
	query       string
	recordingID string
	limit       int
}

// New creates a search request. recordingID is an optional scope filter;
// a zero limit falls back to the default.
func New(query, recordingID string, limit int) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query text is required")
	}
	if limit < 0 {
		return Request{}, fmt.Errorf("limit must be non-negative, got %d", limit)
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Request{query: query, recordingID: recordingID, limit: limit}, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// RecordingID returns the optional recording scope, empty for global search.
func (r *Request) RecordingID() string { return r.recordingID }

// Limit returns the maximum number of results to return.
func (r *Request) Limit() int { return r.limit }
