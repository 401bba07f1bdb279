// Package retrieval ranks lesson chunks against a query using keyword overlap.
package retrieval

import (
	"math"
	"sort"

	"github.com/upb/physics-tutor/models"
)

// DefaultTopK is the number of chunks handed to the prompt builder when unconfigured
const DefaultTopK = 6

// Score returns the relevance of one chunk to the given query terms.
// Each distinct term present contributes 1 + ln(tf), so repetition helps
// sublinearly and breadth of matching terms dominates.
func Score(terms []string, chunk models.Chunk) float64 {
	if len(terms) == 0 {
		return 0
	}

	tf := make(map[string]int)
	for _, tok := range Tokenize(chunk.Text) {
		tf[tok]++
	}

	var score float64
	for _, term := range terms {
		if n := tf[term]; n > 0 {
			score += 1 + math.Log(float64(n))
		}
	}
	return score
}

// Retrieve returns at most k chunks with a positive score, best first.
// Ties keep the original chunk order. A non-positive k, an empty chunk set,
// or a query with no content terms yields an empty result.
func Retrieve(query string, chunks []models.Chunk, k int) []models.ScoredChunk {
	if k <= 0 || len(chunks) == 0 {
		return []models.ScoredChunk{}
	}

	terms := QueryTerms(query)
	if len(terms) == 0 {
		return []models.ScoredChunk{}
	}

	scored := make([]models.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if s := Score(terms, c); s > 0 {
			scored = append(scored, models.ScoredChunk{Chunk: c, Score: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
