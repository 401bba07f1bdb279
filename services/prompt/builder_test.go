package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/upb/physics-tutor/models"
)

func TestBuildSystemPrompt(t *testing.T) {
	p := BuildSystemPrompt()

	assert.NotEmpty(t, p)
	assert.Contains(t, p, "physics tutor")
	assert.Contains(t, p, "Do not invent")
	assert.Equal(t, p, BuildSystemPrompt(), "system prompt is fixed")
}

func TestBuildUserPrompt_WithChunks(t *testing.T) {
	chunks := []models.ScoredChunk{
		{Chunk: models.Chunk{Text: "Momentum p = mv.  ", Source: "momentum/intro"}, Score: 2},
		{Chunk: models.Chunk{Text: "Impulse changes momentum.", Source: "momentum/impulse"}, Score: 1},
	}

	p := BuildUserPrompt("What is momentum?", chunks)

	assert.Contains(t, p, "[1] (source: momentum/intro)\nMomentum p = mv.")
	assert.Contains(t, p, "[2] (source: momentum/impulse)\nImpulse changes momentum.")
	assert.NotContains(t, p, NoMaterialNotice)
	assert.True(t, strings.HasSuffix(p, "Question: What is momentum?"))

	// ranking order is preserved
	assert.Less(t, strings.Index(p, "momentum/intro"), strings.Index(p, "momentum/impulse"))
}

func TestBuildUserPrompt_NoChunks(t *testing.T) {
	for _, chunks := range [][]models.ScoredChunk{nil, {}} {
		p := BuildUserPrompt("What is a tensor?", chunks)

		assert.Contains(t, p, NoMaterialNotice)
		assert.NotContains(t, p, "(source:")
		assert.True(t, strings.HasSuffix(p, "Question: What is a tensor?"))
	}
}

func TestBuildUserPrompt_QueryVerbatim(t *testing.T) {
	query := "  Why is   g ≈ 9.81 m/s²?  "
	p := BuildUserPrompt(query, nil)
	assert.True(t, strings.HasSuffix(p, "Question: "+query))
}
