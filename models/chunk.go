package models

// Chunk is a contiguous window of a single document's text.
// Chunks are never mutated after the chunker produces them.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"` // parent Document.ID
	Index  int    `json:"index"`  // position within the parent document
	Offset int    `json:"offset"` // rune offset of Text within the parent document
}

// Len returns the chunk length in runes
func (c Chunk) Len() int {
	return len([]rune(c.Text))
}

// ScoredChunk pairs a chunk with its relevance score for one query
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Sources returns the distinct source identifiers of the given chunks in first-seen order
func Sources(chunks []ScoredChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		if _, ok := seen[sc.Chunk.Source]; ok {
			continue
		}
		seen[sc.Chunk.Source] = struct{}{}
		out = append(out, sc.Chunk.Source)
	}
	return out
}
