// Package tasks holds scheduled background jobs.
package tasks

import (
	"context"
	"fmt"
	"time"

	"mediumplus/app/cache"
	"mediumplus/app/metrics"
	"mediumplus/app/pages"
	"mediumplus/app/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Result counts the outcome of one prebuild pass.
type Result struct {
	Built   int
	Skipped int
	Failed  int
}

// PrebuildTask renders detail pages ahead of requests: all of them on Run, and
// on a schedule any that appeared since.
type PrebuildTask struct {
	posts    *services.PostService
	pages    *pages.Builder
	regen    *cache.Regenerator
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewPrebuildTask(posts *services.PostService, builder *pages.Builder, regen *cache.Regenerator, schedule string, logger *zap.Logger, m *metrics.Metrics) *PrebuildTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrebuildTask{
		posts:    posts,
		pages:    builder,
		regen:    regen,
		cron:     cron.New(),
		schedule: schedule,
		timeout:  5 * time.Minute,
		logger:   logger.Named("prebuild"),
		metrics:  m,
	}
}

// Run builds every enumerated detail page, replacing what is stored. Failures
// on single pages are logged and counted; a failed enumeration is returned.
func (t *PrebuildTask) Run(ctx context.Context) (Result, error) {
	return t.each(ctx, func(ctx context.Context, slug string) (*cache.Page, error) {
		return t.regen.Prebuild(ctx, pages.CacheKey(slug), t.pages.Detail(slug))
	})
}

// Refresh builds only the detail pages that are not stored yet.
func (t *PrebuildTask) Refresh(ctx context.Context) (Result, error) {
	return t.each(ctx, func(ctx context.Context, slug string) (*cache.Page, error) {
		return t.regen.Warm(ctx, pages.CacheKey(slug), t.pages.Detail(slug))
	})
}

// each counts a page as built only when it was stored. A nil page means one was
// already stored, and an uncacheable one means the post is gone.
func (t *PrebuildTask) each(ctx context.Context, build func(context.Context, string) (*cache.Page, error)) (Result, error) {
	var res Result
	paths, err := t.posts.DetailPaths(ctx)
	if err != nil {
		return res, fmt.Errorf("prebuild: %w", err)
	}

	for _, slug := range paths.Slugs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page, err := build(ctx, slug)
		switch {
		case err != nil:
			res.Failed++
			t.metrics.Prebuilt("error")
			t.logger.Error("failed to build page", zap.String("slug", slug), zap.Error(err))
		case page == nil:
			res.Skipped++
		case !page.Cacheable():
			res.Skipped++
			t.metrics.Prebuilt("gone")
			t.logger.Info("post disappeared before its page was built", zap.String("slug", slug))
		default:
			res.Built++
			t.metrics.Prebuilt("ok")
		}
	}
	return res, nil
}

// Start schedules Refresh. An empty schedule disables it.
func (t *PrebuildTask) Start() error {
	if t.schedule == "" {
		t.logger.Info("scheduled prebuild disabled")
		return nil
	}

	entryID, err := t.cron.AddFunc(t.schedule, func() {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		res, err := t.Refresh(ctx)
		if err != nil {
			t.logger.Error("scheduled prebuild failed", zap.Error(err))
			return
		}
		t.logger.Info("scheduled prebuild finished",
			zap.Int("built", res.Built),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("invalid prebuild schedule %q: %w", t.schedule, err)
	}

	t.cron.Start()
	t.logger.Info("scheduled prebuild started",
		zap.String("schedule", t.schedule),
		zap.Int("entry_id", int(entryID)))
	return nil
}

// Stop halts the scheduler. The returned context is done once a running
// refresh has finished.
func (t *PrebuildTask) Stop() context.Context {
	return t.cron.Stop()
}
