package recording

import "time"

// Segment is one timestamped slice of a transcript.
type Segment struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Question is one generated comprehension test question.
type Question struct {
	Prompt  string
	Options []string
	Answer  string
}

// Summary holds the outputs of the summarization stage.
type Summary struct {
	Summary   string
	Article   string
	KeyPoints []string
}

// Recording accumulates the artifacts produced by a pipeline run.
// Fields are filled in stage order; a failed run leaves the artifacts of
// completed stages intact.
type Recording struct {
	ID         string
	Filename   string
	AudioRef   string
	Transcript string
	Segments   []Segment
	Summary    string
	Article    string
	KeyPoints  []string
	Questions  []Question
	CreatedAt  time.Time
}

// New creates an empty recording for the given source file.
func New(id, filename string) *Recording {
	return &Recording{
		ID:        id,
		Filename:  filename,
		AudioRef:  filename,
		CreatedAt: time.Now(),
	}
}
