package content

import (
	"context"

	"github.com/upb/physics-tutor/models"
	"github.com/upb/physics-tutor/repositories"
	"github.com/upb/physics-tutor/services"
	"go.uber.org/zap"
)

// RepositoryLoader serves published lessons from the lesson repository
type RepositoryLoader struct {
	lessons repositories.LessonRepository
	logger  *zap.Logger
}

// NewRepositoryLoader creates a loader backed by the lesson repository
func NewRepositoryLoader(lessons repositories.LessonRepository, logger *zap.Logger) *RepositoryLoader {
	return &RepositoryLoader{lessons: lessons, logger: logger}
}

// Load returns the published lessons ordered by slug
func (l *RepositoryLoader) Load(ctx context.Context) ([]models.Document, error) {
	lessons, err := l.lessons.ListPublished(ctx)
	if err != nil {
		return nil, services.WrapLoad("failed to list lessons", err)
	}

	docs := make([]models.Document, 0, len(lessons))
	for _, lesson := range lessons {
		docs = append(docs, lesson.Document())
	}

	l.logger.Debug("lessons loaded from database", zap.Int("documents", len(docs)))
	return docs, nil
}
