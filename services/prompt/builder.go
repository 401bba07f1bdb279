// Package prompt assembles the instructions and grounded context sent to the completion service.
package prompt

import (
	"fmt"
	"strings"

	"github.com/upb/physics-tutor/models"
)

// NoMaterialNotice replaces the context block when retrieval found nothing
const NoMaterialNotice = "No relevant lesson material was found for this question."

const systemPrompt = `You are the physics tutor for this website's lessons. You help students understand the material in those lessons.

Rules:
- Answer only from the lesson context provided in the user message. Do not invent facts, formulas, numbers or sources that are not supported by that context.
- If the context does not contain enough information to answer, say so plainly and suggest which lesson topic the student could review or how to rephrase the question.
- Stay within the physics syllabus. Politely decline anything unrelated.
- Explain at the level of a student working through the lessons: define symbols, show steps, and always state units.
- When you rely on a passage, mention its source in parentheses, for example (source: vectors/addition).`

// BuildSystemPrompt returns the fixed tutor instruction
func BuildSystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt embeds the retrieved chunks, each attributed to its source,
// followed by the learner's question. An empty chunk list produces an explicit
// notice instead of an empty context section.
func BuildUserPrompt(query string, chunks []models.ScoredChunk) string {
	var b strings.Builder

	b.WriteString("Lesson context:\n\n")
	if len(chunks) == 0 {
		b.WriteString(NoMaterialNotice)
		b.WriteString("\n")
	}
	for i, sc := range chunks {
		fmt.Fprintf(&b, "[%d] (source: %s)\n", i+1, sc.Chunk.Source)
		b.WriteString(strings.TrimSpace(sc.Chunk.Text))
		b.WriteString("\n\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	return b.String()
}
