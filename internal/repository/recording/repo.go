// Package recording persists pipeline artifacts as JSON documents.
package recording

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/GitHub-HackDay/sumview/internal/db"
	"github.com/GitHub-HackDay/sumview/internal/domain"
	domrec "github.com/GitHub-HackDay/sumview/internal/domain/recording"
)

// store is the consumer interface for recording documents (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase persistence for recordings.
type Repo struct {
	store  store
	prefix string
}

// New creates a recording repository. Keys are "<prefix>recording:<id>".
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Save writes the full recording document, replacing any prior version.
func (r *Repo) Save(ctx context.Context, rec *domrec.Recording) error {
	data, err := json.Marshal(toDoc(rec))
	if err != nil {
		return fmt.Errorf("marshal recording %s: %w", rec.ID, err)
	}
	key := r.key(rec.ID)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// Get returns a recording by ID.
func (r *Repo) Get(ctx context.Context, id string) (*domrec.Recording, error) {
	key := r.key(id)
	raw, err := r.store.JSONGet(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrRecordingNotFound
		}
		return nil, fmt.Errorf("json.get %s: %w", key, err)
	}
	var doc recordingDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal recording %s: %w", id, err)
	}
	return fromDoc(doc), nil
}

// List returns all stored recordings ordered by creation time, newest first.
func (r *Repo) List(ctx context.Context) ([]*domrec.Recording, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"recording:*")
	if err != nil {
		return nil, fmt.Errorf("scan recordings: %w", err)
	}

	recs := make([]*domrec.Recording, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimPrefix(key, r.prefix+"recording:")
		rec, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrRecordingNotFound) {
				continue // deleted between scan and get
			}
			return nil, err
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

// Delete removes a recording document. Missing keys are not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.key(id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (r *Repo) key(id string) string {
	return r.prefix + "recording:" + id
}
