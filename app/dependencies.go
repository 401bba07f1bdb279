package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/physics-tutor/config"
	"github.com/upb/physics-tutor/repositories"
	"github.com/upb/physics-tutor/repositories/postgres"
	"github.com/upb/physics-tutor/services"
	"github.com/upb/physics-tutor/services/chunker"
	"github.com/upb/physics-tutor/services/completion"
	"github.com/upb/physics-tutor/services/completion/anthropic"
	"github.com/upb/physics-tutor/services/completion/openai"
	"github.com/upb/physics-tutor/services/content"
	"github.com/upb/physics-tutor/services/ratelimit"
	"github.com/upb/physics-tutor/services/scope"
	"github.com/upb/physics-tutor/services/tutor"
	"go.uber.org/zap"
)

// cleanupInterval paces the cache and rate limiter sweepers
const cleanupInterval = time.Minute

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory, set only when lessons come from Postgres
	RepoFactory *postgres.RepositoryFactory
	Lessons     repositories.LessonRepository
	TxManager   repositories.TransactionManager

	// Content
	DirLoader     *content.DirLoader
	LessonCache   *content.CachedLoader
	ContentLoader content.Loader

	// Pipeline
	Classifier *scope.Classifier
	Provider   completion.Provider
	Tutor      *tutor.Service

	// HTTP
	RateLimiter *ratelimit.RateLimitService

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDependencies creates and wires up all application dependencies.
// Background workers (cache sweeper, file watcher, rate limiter sweeper) run until Close.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Content.Source == config.ContentSourcePostgres {
		factory, err := postgres.NewRepositoryFactory(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := deps.initRepositories(ctx, factory); err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize repositories: %w", err)
		}
	}

	if err := deps.build(); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesWithFactory wires the application around an already opened lesson database
func NewDependenciesWithFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	if err := deps.initRepositories(ctx, factory); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	if err := deps.build(); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) build() error {
	bg, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	if err := d.initContent(bg); err != nil {
		return fmt.Errorf("failed to initialize content: %w", err)
	}
	if err := d.initClassifier(); err != nil {
		return fmt.Errorf("failed to initialize scope classifier: %w", err)
	}
	d.initProvider()
	if err := d.initTutor(); err != nil {
		return fmt.Errorf("failed to initialize tutor: %w", err)
	}
	d.initRateLimiter(bg)
	return nil
}

// initRepositories binds the lesson repository and makes sure the schema exists
func (d *Dependencies) initRepositories(ctx context.Context, factory *postgres.RepositoryFactory) error {
	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := factory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.Lessons = repos.Lessons
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("lesson repository initialized",
		zap.String("connection", d.Config.Database.LogString()))
	return nil
}

// initContent selects the lesson source and wraps it with the optional cache and watcher
func (d *Dependencies) initContent(bg context.Context) error {
	cfg := d.Config.Content

	var loader content.Loader
	switch cfg.Source {
	case config.ContentSourceFS:
		d.DirLoader = content.NewDirLoader(cfg.Dir, d.Logger, content.WithExtensions(cfg.Extensions...))
		loader = d.DirLoader
	case config.ContentSourcePostgres:
		if d.Lessons == nil {
			return services.ErrUnknownContent.WithDetail("reason", "lesson repository not initialized")
		}
		loader = content.NewRepositoryLoader(d.Lessons, d.Logger)
	default:
		return services.ErrUnknownContent.WithDetail("source", cfg.Source)
	}

	if cfg.CacheEnabled {
		d.LessonCache = content.NewCachedLoader(loader, cfg.CacheTTL, d.Logger)
		loader = d.LessonCache

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.LessonCache.StartCleanupWorker(bg, cleanupInterval)
		}()

		if cfg.Watch && d.DirLoader != nil {
			watcher := content.NewWatcher(d.DirLoader, d.LessonCache, d.Logger)
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				if err := watcher.Run(bg); err != nil {
					d.Logger.Error("lesson watcher stopped", zap.Error(err))
				}
			}()
		}
	} else if cfg.Watch {
		d.Logger.Warn("CONTENT_WATCH has no effect without CONTENT_CACHE_ENABLED")
	}

	d.ContentLoader = loader
	d.Logger.Info("content source initialized",
		zap.String("source", cfg.Source),
		zap.Bool("cache", cfg.CacheEnabled),
		zap.Bool("watch", cfg.Watch))
	return nil
}

// initClassifier builds the scope classifier, extended by the optional syllabus file
func (d *Dependencies) initClassifier() error {
	var opts []scope.Option
	if path := d.Config.Scope.SyllabusFile; path != "" {
		syllabus, err := scope.LoadSyllabus(path)
		if err != nil {
			return err
		}
		opts = append(opts, scope.WithSyllabus(syllabus))
		d.Logger.Info("syllabus loaded", zap.String("file", path))
	}

	d.Classifier = scope.New(opts...)
	d.Logger.Info("scope classifier initialized", zap.Int("terms", d.Classifier.TermCount()))
	return nil
}

// initProvider selects the completion adapter. A missing API key yields an
// Unconfigured provider so the server still starts and readiness reports it.
func (d *Dependencies) initProvider() {
	d.Provider = NewProvider(d.Config.Completion)
	if !completion.IsConfigured(d.Provider) {
		d.Logger.Warn("completion provider not configured",
			zap.String("provider", d.Config.Completion.Provider))
		return
	}
	d.Logger.Info("completion provider initialized",
		zap.String("provider", d.Provider.Name()),
		zap.String("model", d.Config.Completion.Model))
}

// NewProvider builds the adapter named by cfg.Provider
func NewProvider(cfg config.CompletionConfig) completion.Provider {
	creds := cfg.Credentials()
	if creds.APIKey == "" {
		return completion.NewUnconfigured(cfg.Provider, "missing API key")
	}

	pc := completion.Config{
		APIKey:  creds.APIKey,
		BaseURL: creds.BaseURL,
		Timeout: cfg.Timeout,
	}
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewAdapter(pc)
	case config.ProviderOpenAI:
		return openai.NewAdapter(pc)
	default:
		return completion.NewUnconfigured(cfg.Provider, "unknown provider")
	}
}

func (d *Dependencies) initTutor() error {
	cfg := tutor.Config{
		Chunking: chunker.Config{
			Size:    d.Config.Chunking.Size,
			Overlap: d.Config.Chunking.Overlap,
		},
		TopK:        d.Config.Retrieval.TopK,
		Model:       d.Config.Completion.Model,
		Temperature: d.Config.Completion.Temperature,
		MaxTokens:   d.Config.Completion.MaxTokens,
		Timeout:     d.Config.Completion.Timeout,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d.Tutor = tutor.NewService(d.Classifier, d.ContentLoader, d.Provider, cfg, d.Logger)
	return nil
}

func (d *Dependencies) initRateLimiter(bg context.Context) {
	if !d.Config.RateLimit.Enabled {
		d.Logger.Info("rate limiting disabled")
		return
	}

	d.RateLimiter = ratelimit.NewRateLimitService(ratelimit.Config{
		RequestsPerSecond: d.Config.RateLimit.RequestsPerSecond,
		Burst:             d.Config.RateLimit.Burst,
	}, d.Logger)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.RateLimiter.StartCleanupWorker(bg, cleanupInterval)
	}()
}

// NewImporter returns an importer copying lessons from the content directory into Postgres
func (d *Dependencies) NewImporter(dir string) (*content.Importer, error) {
	if d.Lessons == nil || d.TxManager == nil {
		return nil, services.WrapConfiguration("lesson import requires CONTENT_SOURCE=postgres", nil)
	}
	if dir == "" {
		dir = d.Config.Content.Dir
	}
	source := content.NewDirLoader(dir, d.Logger, content.WithExtensions(d.Config.Content.Extensions...))
	return content.NewImporter(source, d.Lessons, d.TxManager, d.Logger), nil
}

// Close stops background workers and closes the database. Safe to call more than once.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error

	d.closeOnce.Do(func() {
		d.Logger.Info("shutting down dependencies")

		if d.cancel != nil {
			d.cancel()
		}

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("background workers did not stop: %w", ctx.Err()))
		}

		if d.RepoFactory != nil {
			if err := d.RepoFactory.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close database: %w", err))
			} else {
				d.Logger.Info("database connection closed")
			}
		}

		_ = d.Logger.Sync()
	})

	return errors.Join(errs...)
}
