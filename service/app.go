package service

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediumplus/app/cache"
	"mediumplus/app/config"
	"mediumplus/app/controllers"
	"mediumplus/app/events"
	"mediumplus/app/logging"
	"mediumplus/app/metrics"
	"mediumplus/app/pages"
	"mediumplus/app/render"
	"mediumplus/app/repositories"
	"mediumplus/app/repositories/memory"
	"mediumplus/app/repositories/sanity"
	"mediumplus/app/routes"
	"mediumplus/app/services"
	"mediumplus/app/tasks"
	"mediumplus/app/views"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// demoSeed keeps generated demo content stable between restarts.
const demoSeed = 20220110

// App is the wired front end: content source, page store, regeneration and
// the HTTP handler over them.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	content   repositories.ContentStore
	pages     cache.Store
	regen     *cache.Regenerator
	publisher events.Publisher
	prebuild  *tasks.PrebuildTask
	handler   http.Handler
}

// NewApp opens every dependency named by cfg. Close releases them.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{cfg: cfg, logger: logger, metrics: metrics.New()}

	content, err := newContentStore(cfg, logger, a.metrics)
	if err != nil {
		return nil, err
	}
	a.content = content

	a.pages, err = newPageStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	a.publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	}

	renderer := render.New(render.ImageURLBuilder{
		ProjectID: cfg.Sanity.ProjectID,
		Dataset:   cfg.Sanity.Dataset,
	})
	v, err := views.New(renderer)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.regen = cache.NewRegenerator(a.pages, cfg.Pages.Revalidate, logger, cache.WithMetrics(a.metrics))

	postService := services.NewPostService(a.content, cfg.Pages.Revalidate)
	commentService := services.NewCommentService(a.content, a.publisher, logger, a.metrics)
	builder := pages.NewBuilder(postService, v)

	a.prebuild = tasks.NewPrebuildTask(postService, builder, a.regen, cfg.Pages.PrebuildSchedule, logger, a.metrics)
	a.handler = routes.Handler(routes.Handlers{
		Posts:    controllers.NewPostController(builder, a.regen, logger),
		Comments: controllers.NewCommentController(commentService, builder, logger),
		Metrics:  a.metrics,
		Logger:   logger,
	})
	return a, nil
}

func newContentStore(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (repositories.ContentStore, error) {
	if cfg.Content.Source == config.SourceMemory {
		store := memory.NewStore()
		posts := memory.Seed(store, cfg.Content.SeedPosts, demoSeed)
		logger.Info("using generated demo content", zap.Int("posts", len(posts)))
		return store, nil
	}

	client, err := sanity.NewClient(sanity.Config{
		ProjectID:  cfg.Sanity.ProjectID,
		Dataset:    cfg.Sanity.Dataset,
		APIVersion: cfg.Sanity.APIVersion,
		UseCDN:     cfg.Sanity.UseCDN,
		Token:      cfg.Sanity.Token,
	}, logger, m)
	if err != nil {
		return nil, err
	}
	if cfg.Sanity.Token == "" {
		logger.Warn("no sanity token configured, comment submissions will fail")
	}
	return sanity.NewStore(client), nil
}

func newPageStore(cfg *config.Config, logger *zap.Logger) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Cache.RedisAddr},
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		return cache.NewRedisStore(client, ""), nil
	default:
		return cache.OpenBadgerStore(cache.BadgerOptions{
			Path:     cfg.Cache.BadgerPath,
			InMemory: cfg.Cache.InMemory,
			Logger:   logger,
		})
	}
}

// Handler is the complete HTTP surface.
func (a *App) Handler() http.Handler { return a.handler }

// Prebuild builds every detail page into the page store.
func (a *App) Prebuild(ctx context.Context) (tasks.Result, error) {
	return a.prebuild.Run(ctx)
}

// Run builds the initial pages, starts the refresh schedule and serves HTTP
// until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	start := time.Now()
	res, err := a.Prebuild(ctx)
	if err != nil {
		// Pages are still built on first request.
		a.logger.Error("initial prebuild failed", zap.Error(err))
	} else {
		a.logger.Info("initial prebuild finished",
			zap.Int("built", res.Built),
			zap.Int("failed", res.Failed),
			zap.Duration("duration", time.Since(start)))
	}

	if err := a.prebuild.Start(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		<-a.prebuild.Stop().Done()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	select {
	case <-a.prebuild.Stop().Done():
	case <-shutdownCtx.Done():
		a.logger.Warn("scheduled prebuild still running at shutdown")
	}
	return err
}

// Close stops background regeneration and releases the page store and the
// event publisher.
func (a *App) Close() error {
	if a.regen != nil {
		a.regen.Close()
	}
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.pages != nil {
		errs = append(errs, a.pages.Close())
	}
	return errors.Join(errs...)
}

type serveOptions struct {
	configPath string
	demo       bool
}

func parseServeFlags(name string, args []string, out io.Writer) (serveOptions, error) {
	var opts serveOptions
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	fs.BoolVar(&opts.demo, "demo", false, "serve generated posts from memory instead of the CMS")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// loadConfig reads configuration, switching to generated in-memory content
// and an in-memory page store for demo runs.
func loadConfig(opts serveOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.demo {
		cfg.Content.Source = config.SourceMemory
		if cfg.Cache.Backend == config.BackendBadger {
			cfg.Cache.InMemory = true
		}
	}
	return cfg, nil
}

func setup(name string, args []string) (*App, *zap.Logger, error) {
	opts, err := parseServeFlags(name, args, os.Stdout)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	app, err := NewApp(cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}
	return app, logger, nil
}

// RunAppServer runs the blog front end until SIGINT or SIGTERM and returns
// the process exit code.
func RunAppServer(args []string) int {
	app, logger, err := setup("serve", args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		return 1
	}
	defer logger.Sync()
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("shutdown incomplete", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

// RunPrebuild builds every detail page into the configured page store once.
func RunPrebuild(args []string) int {
	app, logger, err := setup("prebuild", args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		return 1
	}
	defer logger.Sync()
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := app.Prebuild(ctx)
	if err != nil {
		fmt.Printf("Prebuild failed: %v\n", err)
		return 1
	}
	fmt.Printf("Built %d pages (%d failed)\n", res.Built, res.Failed)
	if res.Failed > 0 {
		return 1
	}
	return 0
}
