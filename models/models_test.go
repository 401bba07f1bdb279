package models

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	doc := NewDocument(`vectors\addition`, "Vectors add tip to tail.")

	assert.Equal(t, "vectors/addition", doc.ID)
	assert.Equal(t, "Vectors add tip to tail.", doc.Text)
	assert.False(t, doc.IsEmpty())
	assert.True(t, NewDocument("blank", " \n\t").IsEmpty())
}

func TestNewLesson(t *testing.T) {
	lesson := NewLesson("kinematics/velocity", "Velocity", "Velocity is displacement over time.")

	assert.Equal(t, "kinematics/velocity", lesson.Slug)
	assert.False(t, lesson.Published)
	assert.False(t, lesson.CreatedAt.IsZero())
	assert.Equal(t, lesson.CreatedAt, lesson.UpdatedAt)
	assert.Equal(t, "lessons", lesson.TableName())

	doc := lesson.Document()
	assert.Equal(t, "kinematics/velocity", doc.ID)
	assert.Equal(t, lesson.Body, doc.Text)
}

func TestChunk_Len(t *testing.T) {
	assert.Equal(t, 5, Chunk{Text: "héllo"}.Len())
	assert.Equal(t, 0, Chunk{}.Len())
}

func TestSources(t *testing.T) {
	chunks := []ScoredChunk{
		{Chunk: Chunk{Source: "b"}, Score: 3},
		{Chunk: Chunk{Source: "a"}, Score: 2},
		{Chunk: Chunk{Source: "b"}, Score: 1},
	}

	assert.Equal(t, []string{"b", "a"}, Sources(chunks))
	assert.Empty(t, Sources(nil))
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleAssistant.IsValid())
	assert.False(t, Role("system").IsValid())
	assert.False(t, Role("").IsValid())
}

func TestLastUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		messages []ChatMessage
		want     string
		ok       bool
	}{
		{
			name:     "single user turn",
			messages: []ChatMessage{{Role: RoleUser, Content: "What is inertia?"}},
			want:     "What is inertia?",
			ok:       true,
		},
		{
			name: "latest user turn wins",
			messages: []ChatMessage{
				{Role: RoleUser, Content: "What is a vector?"},
				{Role: RoleAssistant, Content: "A quantity with magnitude and direction."},
				{Role: RoleUser, Content: "How do I add two of them?"},
			},
			want: "How do I add two of them?",
			ok:   true,
		},
		{
			name: "trailing assistant turn is skipped",
			messages: []ChatMessage{
				{Role: RoleUser, Content: "Define work."},
				{Role: RoleAssistant, Content: "Force times displacement."},
			},
			want: "Define work.",
			ok:   true,
		},
		{
			name:     "no user turn",
			messages: []ChatMessage{{Role: RoleAssistant, Content: "Hi"}},
			ok:       false,
		},
		{
			name: "empty",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LastUserMessage(tt.messages)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChatMessage_JSON(t *testing.T) {
	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"hi"}`), &msg))
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "hi", msg.Content)
}

func TestTranscript(t *testing.T) {
	out := Transcript([]ChatMessage{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
	})
	assert.Equal(t, "user: a\nassistant: b", out)
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-2")
	assert.Equal(t, "req-2", RequestIDFromContext(ctx))
}
