package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mediumplus/app/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State tells how a page was obtained.
type State string

const (
	StateHit   State = "HIT"
	StateStale State = "STALE"
	StateMiss  State = "MISS"
)

// Generator renders the page for one key.
type Generator func(ctx context.Context) (*Page, error)

// Regenerator serves stored pages and rebuilds them at most once per key at a
// time. A page younger than the window is served as is; an older one is still
// served while a single background rebuild replaces it.
type Regenerator struct {
	store   Store
	window  time.Duration
	group   singleflight.Group
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

type Option func(*Regenerator)

func WithClock(now func() time.Time) Option {
	return func(r *Regenerator) { r.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Regenerator) { r.metrics = m }
}

func NewRegenerator(store Store, window time.Duration, logger *zap.Logger, opts ...Option) *Regenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Regenerator{
		store:    store,
		window:   window,
		now:      time.Now,
		logger:   logger.Named("isr"),
		baseCtx:  ctx,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Regenerator) Window() time.Duration { return r.window }

// Serve returns the page for key. On a miss the caller blocks until the page
// is generated; concurrent callers for the same key share one generation.
func (r *Regenerator) Serve(ctx context.Context, key string, gen Generator) (*Page, State, error) {
	page, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			r.logger.Warn("page store read failed, regenerating", zap.String("key", key), zap.Error(err))
		}
		r.metrics.PageServed("miss")
		// A caller going away must not fail the callers sharing this flight.
		page, err = r.generate(context.WithoutCancel(ctx), key, gen, "blocking")
		return page, StateMiss, err
	}

	if page.Age(r.now()) < r.window {
		r.metrics.PageServed("hit")
		return page, StateHit, nil
	}

	r.metrics.PageServed("stale")
	r.revalidate(key, gen)
	return page, StateStale, nil
}

// Prebuild generates and stores key unconditionally.
func (r *Regenerator) Prebuild(ctx context.Context, key string, gen Generator) (*Page, error) {
	return r.generate(context.WithoutCancel(ctx), key, gen, "prebuild")
}

// Warm generates key only if nothing is stored for it. It returns the
// generated page, or nil when one was already stored.
func (r *Regenerator) Warm(ctx context.Context, key string, gen Generator) (*Page, error) {
	_, err := r.store.Get(ctx, key)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, ErrMiss) {
		return nil, err
	}
	return r.generate(context.WithoutCancel(ctx), key, gen, "warm")
}

// Wait blocks until every background regeneration has finished.
func (r *Regenerator) Wait() {
	r.wg.Wait()
}

// Close cancels background regenerations and waits for them to return.
// Blocking and prebuild generations are not affected.
func (r *Regenerator) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Regenerator) revalidate(key string, gen Generator) {
	r.mu.Lock()
	if _, busy := r.inflight[key]; busy || r.baseCtx.Err() != nil {
		r.mu.Unlock()
		return
	}
	r.inflight[key] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.inflight, key)
			r.mu.Unlock()
		}()

		// Another instance sharing the store may have rebuilt it already.
		if cur, err := r.store.Get(r.baseCtx, key); err == nil && cur.Age(r.now()) < r.window {
			return
		}
		if _, err := r.generate(r.baseCtx, key, gen, "background"); err != nil {
			r.logger.Error("background regeneration failed, keeping stale page",
				zap.String("key", key), zap.Error(err))
		}
	}()
}

func (r *Regenerator) generate(ctx context.Context, key string, gen Generator, trigger string) (*Page, error) {
	v, err, shared := r.group.Do(key, func() (interface{}, error) {
		start := r.now()
		page, err := gen(ctx)
		if err == nil && page == nil {
			err = fmt.Errorf("generator for %s returned no page", key)
		}
		if err != nil {
			r.metrics.Regenerated(trigger, "error")
			return nil, err
		}
		page.GeneratedAt = r.now()

		if !page.Cacheable() {
			r.metrics.Regenerated(trigger, "uncached")
			if err := r.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrMiss) {
				r.logger.Warn("failed to drop page", zap.String("key", key), zap.Error(err))
			}
			return page, nil
		}

		if err := r.store.Put(ctx, key, page); err != nil {
			r.logger.Warn("failed to store page", zap.String("key", key), zap.Error(err))
		}
		r.metrics.Regenerated(trigger, "ok")
		r.logger.Debug("page generated",
			zap.String("key", key),
			zap.String("trigger", trigger),
			zap.Int("status", page.Status),
			zap.Duration("elapsed", page.GeneratedAt.Sub(start)))
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("joined in-flight generation", zap.String("key", key))
	}
	return v.(*Page), nil
}
