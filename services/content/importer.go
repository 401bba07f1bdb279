package content

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/upb/physics-tutor/models"
	"github.com/upb/physics-tutor/repositories"
	"github.com/upb/physics-tutor/services"
	"go.uber.org/zap"
)

// Importer copies lessons from a Loader into the lesson repository
type Importer struct {
	source  Loader
	lessons repositories.LessonRepository
	txMgr   repositories.TransactionManager
	logger  *zap.Logger
}

// NewImporter creates a lesson importer
func NewImporter(source Loader, lessons repositories.LessonRepository, txMgr repositories.TransactionManager, logger *zap.Logger) *Importer {
	return &Importer{
		source:  source,
		lessons: lessons,
		txMgr:   txMgr,
		logger:  logger,
	}
}

// Import upserts every source document as a published lesson in a single
// transaction and returns how many were written. Nothing is written on error.
func (i *Importer) Import(ctx context.Context) (int, error) {
	docs, err := i.source.Load(ctx)
	if err != nil {
		return 0, err
	}

	n, err := services.WithTransactionResult(ctx, i.txMgr, func(ctx context.Context, tx repositories.Transaction) (int, error) {
		repo := i.lessons.WithTx(tx)
		written := 0
		for _, doc := range docs {
			if doc.IsEmpty() {
				i.logger.Warn("skipping empty lesson", zap.String("slug", doc.ID))
				continue
			}
			lesson := models.NewLesson(doc.ID, Title(doc), doc.Text)
			lesson.Published = true
			if err := repo.Upsert(ctx, lesson); err != nil {
				return written, fmt.Errorf("import %s: %w", doc.ID, err)
			}
			written++
		}
		return written, nil
	})
	if err != nil {
		return 0, services.WrapLoad("lesson import failed", err)
	}

	i.logger.Info("lessons imported", zap.Int("lessons", n), zap.Int("documents", len(docs)))
	return n, nil
}

// Title returns the first level-one Markdown heading of doc, or its ID
func Title(doc models.Document) string {
	sc := bufio.NewScanner(strings.NewReader(doc.Text))
	sc.Buffer(make([]byte, 0, 64*1024), int(DefaultMaxFileSize))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "# ") {
			if title := strings.TrimSpace(strings.TrimPrefix(line, "# ")); title != "" {
				return title
			}
		}
	}
	return doc.ID
}
