// Package chunker splits lesson documents into overlapping fixed-width windows.
package chunker

import (
	"fmt"

	"github.com/upb/physics-tutor/models"
	"github.com/upb/physics-tutor/services"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Config holds the window parameters. Both are measured in runes.
type Config struct {
	Size    int
	Overlap int
}

// DefaultConfig returns the chunking parameters used when none are configured
func DefaultConfig() Config {
	return Config{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Validate rejects parameters that cannot make forward progress
func (c Config) Validate() error {
	switch {
	case c.Size <= 0:
		return services.ErrInvalidChunking.
			WithDetail("size", c.Size).
			WithDetail("reason", "size must be positive")
	case c.Overlap < 0:
		return services.ErrInvalidChunking.
			WithDetail("overlap", c.Overlap).
			WithDetail("reason", "overlap must not be negative")
	case c.Overlap >= c.Size:
		return services.ErrInvalidChunking.
			WithDetail("size", c.Size).
			WithDetail("overlap", c.Overlap).
			WithDetail("reason", "overlap must be smaller than size")
	}
	return nil
}

// Step is the distance between the starts of consecutive windows
func (c Config) Step() int {
	return c.Size - c.Overlap
}

// String implements fmt.Stringer
func (c Config) String() string {
	return fmt.Sprintf("size=%d overlap=%d", c.Size, c.Overlap)
}

// Chunk splits one document into windows of cfg.Size runes advancing by cfg.Step().
// The last window ends exactly at the end of the text and may be shorter than Size.
// Empty text yields no chunks.
func Chunk(doc models.Document, cfg Config) ([]models.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(doc.Text)
	n := len(runes)
	if n == 0 {
		return []models.Chunk{}, nil
	}

	step := cfg.Step()
	chunks := make([]models.Chunk, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := start + cfg.Size
		if end > n {
			end = n
		}
		chunks = append(chunks, models.Chunk{
			Text:   string(runes[start:end]),
			Source: doc.ID,
			Index:  len(chunks),
			Offset: start,
		})
		if end == n {
			break
		}
	}
	return chunks, nil
}

// ChunkAll chunks every document, preserving document order then index order
func ChunkAll(docs []models.Document, cfg Config) ([]models.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var all []models.Chunk
	for _, doc := range docs {
		chunks, err := Chunk(doc, cfg)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.ID, err)
		}
		all = append(all, chunks...)
	}
	if all == nil {
		all = []models.Chunk{}
	}
	return all, nil
}
