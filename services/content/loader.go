// Package content enumerates the lesson documents the tutor retrieves from.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/upb/physics-tutor/models"
	"github.com/upb/physics-tutor/services"
	"go.uber.org/zap"
)

// Loader returns every lesson document reachable by the content system
type Loader interface {
	Load(ctx context.Context) ([]models.Document, error)
}

const (
	// DefaultMaxFileSize bounds how much of a single lesson file is read
	DefaultMaxFileSize int64 = 1 << 20
)

// DefaultExtensions are the lesson file types picked up by DirLoader
var DefaultExtensions = []string{".md", ".mdx"}

// DirLoader reads lessons from a directory tree of Markdown files
type DirLoader struct {
	root        string
	extensions  map[string]struct{}
	maxFileSize int64
	logger      *zap.Logger
}

// DirOption configures a DirLoader
type DirOption func(*DirLoader)

// WithExtensions replaces the accepted file extensions. Entries without a leading dot get one.
func WithExtensions(exts ...string) DirOption {
	return func(l *DirLoader) {
		set := make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			set[ext] = struct{}{}
		}
		if len(set) > 0 {
			l.extensions = set
		}
	}
}

// WithMaxFileSize sets the size above which lesson files are skipped
func WithMaxFileSize(n int64) DirOption {
	return func(l *DirLoader) {
		if n > 0 {
			l.maxFileSize = n
		}
	}
}

// NewDirLoader creates a loader rooted at dir
func NewDirLoader(root string, logger *zap.Logger, opts ...DirOption) *DirLoader {
	l := &DirLoader{
		root:        root,
		maxFileSize: DefaultMaxFileSize,
		logger:      logger,
	}
	WithExtensions(DefaultExtensions...)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the content directory
func (l *DirLoader) Root() string {
	return l.root
}

// IsLessonFile reports whether path has one of the accepted extensions
func (l *DirLoader) IsLessonFile(path string) bool {
	_, ok := l.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func skipEntry(name string) bool {
	return (strings.HasPrefix(name, ".") && name != ".") || name == "node_modules"
}

// Load walks the content directory and returns the lessons sorted by identifier.
// Files that cannot be read are logged and skipped; a missing root is a load error.
func (l *DirLoader) Load(ctx context.Context) ([]models.Document, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		return nil, services.WrapLoad("content directory unavailable", err)
	}
	if !info.IsDir() {
		return nil, services.WrapLoad("content path is not a directory", fmt.Errorf("%s", l.root))
	}

	docs := make([]models.Document, 0)
	seen := make(map[string]string)

	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == l.root {
				return walkErr
			}
			l.logger.Warn("skipping unreadable content entry",
				zap.String("path", path),
				zap.Error(walkErr),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path != l.root && skipEntry(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !l.IsLessonFile(path) {
			return nil
		}

		doc, ok := l.readLesson(path, d)
		if !ok {
			return nil
		}
		if prev, dup := seen[doc.ID]; dup {
			l.logger.Warn("duplicate lesson identifier, keeping first",
				zap.String("id", doc.ID),
				zap.String("kept", prev),
				zap.String("skipped", path),
			)
			return nil
		}
		seen[doc.ID] = path
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.WrapLoad("failed to walk content directory", err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	l.logger.Debug("lessons loaded from directory",
		zap.String("root", l.root),
		zap.Int("documents", len(docs)),
	)
	return docs, nil
}

func (l *DirLoader) readLesson(path string, d fs.DirEntry) (models.Document, bool) {
	info, err := d.Info()
	if err != nil {
		l.logger.Warn("skipping unreadable lesson", zap.String("path", path), zap.Error(err))
		return models.Document{}, false
	}
	if info.Size() > l.maxFileSize {
		l.logger.Warn("skipping oversized lesson",
			zap.String("path", path),
			zap.Int64("size", info.Size()),
			zap.Int64("max_size", l.maxFileSize),
		)
		return models.Document{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn("skipping unreadable lesson", zap.String("path", path), zap.Error(err))
		return models.Document{}, false
	}

	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		l.logger.Warn("skipping lesson outside content root", zap.String("path", path), zap.Error(err))
		return models.Document{}, false
	}
	id := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

	return models.NewDocument(id, string(data)), true
}
