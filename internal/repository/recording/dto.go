package recording

import (
	"time"

	domrec "github.com/GitHub-HackDay/sumview/internal/domain/recording"
)

// recordingDoc is the JSON document layout stored in Redis.
type recordingDoc struct {
	ID         string        `json:"id"`
	Filename   string        `json:"filename"`
	AudioRef   string        `json:"audio_ref,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
	Segments   []segmentDoc  `json:"segments,omitempty"`
	Summary    string        `json:"summary,omitempty"`
	Article    string        `json:"article,omitempty"`
	KeyPoints  []string      `json:"key_points,omitempty"`
	Questions  []questionDoc `json:"questions,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

type segmentDoc struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type questionDoc struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

func toDoc(rec *domrec.Recording) recordingDoc {
	doc := recordingDoc{
		ID:         rec.ID,
		Filename:   rec.Filename,
		AudioRef:   rec.AudioRef,
		Transcript: rec.Transcript,
		Summary:    rec.Summary,
		Article:    rec.Article,
		KeyPoints:  rec.KeyPoints,
		CreatedAt:  rec.CreatedAt,
	}
	for _, s := range rec.Segments {
		doc.Segments = append(doc.Segments, segmentDoc(s))
	}
	for _, q := range rec.Questions {
		doc.Questions = append(doc.Questions, questionDoc{
			Prompt:  q.Prompt,
			Options: q.Options,
			Answer:  q.Answer,
		})
	}
	return doc
}

func fromDoc(doc recordingDoc) *domrec.Recording {
	rec := &domrec.Recording{
		ID:         doc.ID,
		Filename:   doc.Filename,
		AudioRef:   doc.AudioRef,
		Transcript: doc.Transcript,
		Summary:    doc.Summary,
		Article:    doc.Article,
		KeyPoints:  doc.KeyPoints,
		CreatedAt:  doc.CreatedAt,
	}
	for _, s := range doc.Segments {
		rec.Segments = append(rec.Segments, domrec.Segment(s))
	}
	for _, q := range doc.Questions {
		rec.Questions = append(rec.Questions, domrec.Question{
			Prompt:  q.Prompt,
			Options: q.Options,
			Answer:  q.Answer,
		})
	}
	return rec
}
