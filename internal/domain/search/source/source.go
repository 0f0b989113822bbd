package source

// Source identifies which retrieval backend produced a score.
type Source string

// Retrieval source constants.
const (
	// Semantic is the vector similarity index.
	Semantic Source = "semantic"
	// Lexical is the keyword/BM25 index.
	Lexical Source = "lexical"
)

// IsValid checks if the source is one of the supported values.
func (s Source) IsValid() bool {
	return s == Semantic || s == Lexical
}
