package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/physics-tutor/models"
	"github.com/upb/physics-tutor/repositories"
	"go.uber.org/zap"
)

// ErrLessonNotFound is returned by GetBySlug when no row matches
var ErrLessonNotFound = errors.New("lesson not found")

// LessonRepository implements the repositories.LessonRepository interface
type LessonRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewLessonRepository creates a new lesson repository
func NewLessonRepository(db *DB, logger *zap.Logger) repositories.LessonRepository {
	return &LessonRepository{
		db:     db,
		logger: logger,
	}
}

func (r *LessonRepository) executor() Executor {
	if r.tx != nil {
		return r.tx.tx
	}
	return r.db.DB
}

// ListPublished returns every published lesson ordered by slug.
// Rows whose body is NULL are skipped with a warning.
func (r *LessonRepository) ListPublished(ctx context.Context) ([]*models.Lesson, error) {
	query := `
		SELECT slug, title, body, published, created_at, updated_at
		FROM lessons
		WHERE published = true
		ORDER BY slug
	`

	rows, err := r.executor().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	lessons := make([]*models.Lesson, 0)
	for rows.Next() {
		lesson := &models.Lesson{}
		var body sql.NullString
		err := rows.Scan(
			&lesson.Slug,
			&lesson.Title,
			&body,
			&lesson.Published,
			&lesson.CreatedAt,
			&lesson.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		if !body.Valid {
			r.logger.Warn("skipping lesson without body", zap.String("slug", lesson.Slug))
			continue
		}
		lesson.Body = body.String
		lessons = append(lessons, lesson)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lessons: %w", err)
	}

	return lessons, nil
}

// GetBySlug retrieves a lesson by slug
func (r *LessonRepository) GetBySlug(ctx context.Context, slug string) (*models.Lesson, error) {
	query := `
		SELECT slug, title, body, published, created_at, updated_at
		FROM lessons
		WHERE slug = $1
	`

	lesson := &models.Lesson{}
	err := r.executor().QueryRowContext(ctx, query, slug).Scan(
		&lesson.Slug,
		&lesson.Title,
		&lesson.Body,
		&lesson.Published,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrLessonNotFound, slug)
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}

	return lesson, nil
}

// Upsert inserts a lesson or replaces title, body and published flag of the existing slug
func (r *LessonRepository) Upsert(ctx context.Context, lesson *models.Lesson) error {
	query := `
		INSERT INTO lessons (slug, title, body, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			published = EXCLUDED.published,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.executor().ExecContext(ctx, query,
		lesson.Slug,
		lesson.Title,
		lesson.Body,
		lesson.Published,
		lesson.CreatedAt,
		lesson.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert lesson: %w", err)
	}

	r.logger.Debug("lesson upserted", zap.String("slug", lesson.Slug))
	return nil
}

// Count returns the number of published lessons
func (r *LessonRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.executor().QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons WHERE published = true`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return n, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *LessonRepository) WithTx(tx repositories.Transaction) repositories.LessonRepository {
	pgTx, ok := tx.(*Transaction)
	if !ok {
		return r
	}
	return &LessonRepository{
		db:     r.db,
		tx:     pgTx,
		logger: r.logger,
	}
}
