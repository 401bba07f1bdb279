package repositories

import (
	"context"

	"github.com/upb/physics-tutor/models"
)

// TransactionManager starts transactions over the lesson store.
// Repositories join one through WithTx.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction. Rollback after Commit is a no-op.
type Transaction interface {
	Commit() error
	Rollback() error
}

// LessonRepository handles lesson content stored in the database
type LessonRepository interface {
	// ListPublished returns every published lesson ordered by slug
	ListPublished(ctx context.Context) ([]*models.Lesson, error)

	// GetBySlug retrieves a lesson by slug
	GetBySlug(ctx context.Context, slug string) (*models.Lesson, error)

	// Upsert inserts a lesson or updates the existing row with the same slug
	Upsert(ctx context.Context, lesson *models.Lesson) error

	// Count returns the number of published lessons
	Count(ctx context.Context) (int, error)

	// WithTx returns a repository bound to the transaction
	WithTx(tx Transaction) LessonRepository
}

// Repositories holds all repository instances
type Repositories struct {
	Lessons LessonRepository
}
