package models

import (
	"strings"
	"time"
)

// Document is one lesson as seen by the retrieval pipeline.
// ID is the slug or relative path that uniquely identifies the lesson.
type Document struct {
	ID   string `json:"id" db:"slug"`
	Text string `json:"text" db:"body"`
}

// NewDocument creates a Document, normalising path separators in the identifier
func NewDocument(id, text string) Document {
	return Document{
		ID:   strings.ReplaceAll(id, "\\", "/"),
		Text: text,
	}
}

// IsEmpty reports whether the document carries no usable text
func (d Document) IsEmpty() bool {
	return strings.TrimSpace(d.Text) == ""
}

// Lesson is the persisted form of a lesson in the content database
type Lesson struct {
	Slug      string    `json:"slug" db:"slug"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Published bool      `json:"published" db:"published"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Lesson model
func (Lesson) TableName() string {
	return "lessons"
}

// NewLesson creates an unpublished lesson
func NewLesson(slug, title, body string) *Lesson {
	now := time.Now()
	return &Lesson{
		Slug:      slug,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Document converts the lesson into a pipeline document
func (l *Lesson) Document() Document {
	return NewDocument(l.Slug, l.Body)
}
