package recording

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/GitHub-HackDay/sumview/internal/db"
	"github.com/GitHub-HackDay/sumview/internal/domain"
	domrec "github.com/GitHub-HackDay/sumview/internal/domain/recording"
)

func testRecording() *domrec.Recording {
	rec := domrec.New("rec-1", "lecture.mp4")
	rec.Transcript = "hello world"
	rec.Segments = []domrec.Segment{
		{Index: 0, Start: 0, End: 4.5, Text: "hello"},
		{Index: 1, Start: 4.5, End: 9.0, Text: "world"},
	}
	rec.Summary = "a greeting"
	rec.KeyPoints = []string{"friendly"}
	rec.Questions = []domrec.Question{
		{Prompt: "What was said?", Options: []string{"hello", "bye"}, Answer: "hello"},
	}
	return rec
}

func TestSave_WritesFullDocument(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, "sumview:")

	var gotKey, gotPath string
	var gotData []byte
	ms.jsonSetFn = func(_ context.Context, key, path string, data []byte) error {
		gotKey, gotPath, gotData = key, path, data
		return nil
	}

	if err := repo.Save(context.Background(), testRecording()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if gotKey != "sumview:recording:rec-1" {
		t.Errorf("key = %s", gotKey)
	}
	if gotPath != "$" {
		t.Errorf("path = %s", gotPath)
	}

	var doc recordingDoc
	if err := json.Unmarshal(gotData, &doc); err != nil {
		t.Fatalf("stored document is not valid JSON: %v", err)
	}
	if doc.ID != "rec-1" || len(doc.Segments) != 2 || len(doc.Questions) != 1 {
		t.Fatalf("stored doc = %+v", doc)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, "sumview:")
	want := testRecording()

	data, err := json.Marshal(toDoc(want))
	if err != nil {
		t.Fatal(err)
	}
	ms.jsonGetFn = func(_ context.Context, key string, _ ...string) ([]byte, error) {
		if key != "sumview:recording:rec-1" {
			t.Errorf("key = %s", key)
		}
		return data, nil
	}

	got, err := repo.Get(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Transcript != want.Transcript {
		t.Errorf("transcript = %q", got.Transcript)
	}
	if len(got.Segments) != 2 || got.Segments[1].Text != "world" {
		t.Errorf("segments = %+v", got.Segments)
	}
	if got.Questions[0].Answer != "hello" {
		t.Errorf("questions = %+v", got.Questions)
	}
}

func TestGet_NotFound(t *testing.T) {
	ms := &mockStore{
		jsonGetFn: func(context.Context, string, ...string) ([]byte, error) {
			return nil, db.ErrKeyNotFound
		},
	}
	repo := New(ms, "sumview:")

	_, err := repo.Get(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrRecordingNotFound) {
		t.Fatalf("expected ErrRecordingNotFound, got %v", err)
	}
}

func TestList_NewestFirstAndSkipsVanished(t *testing.T) {
	older := testRecording()
	older.ID = "rec-old"
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testRecording()
	newer.ID = "rec-new"
	newer.CreatedAt = time.Now()

	docs := map[string][]byte{}
	for _, rec := range []*domrec.Recording{older, newer} {
		data, err := json.Marshal(toDoc(rec))
		if err != nil {
			t.Fatal(err)
		}
		docs["sumview:recording:"+rec.ID] = data
	}

	ms := &mockStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "sumview:recording:*" {
				t.Errorf("pattern = %s", pattern)
			}
			return []string{
				"sumview:recording:rec-old",
				"sumview:recording:rec-gone",
				"sumview:recording:rec-new",
			}, nil
		},
		jsonGetFn: func(_ context.Context, key string, _ ...string) ([]byte, error) {
			if data, ok := docs[key]; ok {
				return data, nil
			}
			return nil, db.ErrKeyNotFound
		},
	}
	repo := New(ms, "sumview:")

	recs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want vanished key skipped", len(recs))
	}
	if recs[0].ID != "rec-new" || recs[1].ID != "rec-old" {
		t.Fatalf("order = %s, %s", recs[0].ID, recs[1].ID)
	}
}

func TestDelete_UsesPrefixedKey(t *testing.T) {
	var gotKey string
	ms := &mockStore{
		delFn: func(_ context.Context, key string) error {
			gotKey = key
			return nil
		},
	}
	repo := New(ms, "sumview:")

	if err := repo.Delete(context.Background(), "rec-1"); err != nil {
		t.Fatal(err)
	}
	if gotKey != "sumview:recording:rec-1" {
		t.Fatalf("key = %s", gotKey)
	}
}
