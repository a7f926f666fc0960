// Package maintenance runs the network jobs that keep stored bookmarks
// healthy: dead-link checks and favicon refreshes.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/stash/internal/limiter"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/metrics"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/webclient"
)

const (
	// DefaultFaviconEndpoint takes the bookmark host as its only argument.
	DefaultFaviconEndpoint = "https://www.google.com/s2/favicons?domain=%s&sz=64"

	// flushEvery bounds how many outcomes the aggregator buffers before
	// committing them in a single store update.
	flushEvery = 32
)

// Client is the HTTP collaborator used by the engine. *webclient.Client
// satisfies it.
type Client interface {
	Metadata(ctx context.Context, rawURL string) (webclient.Metadata, error)
	Get(ctx context.Context, rawURL string) (webclient.Response, error)
	Head(ctx context.Context, rawURL string) (int, error)
}

type Options struct {
	// Concurrency caps simultaneous network requests per job.
	Concurrency int
	// FaviconEndpoint is a fmt template receiving the escaped host.
	FaviconEndpoint string
	Now             func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = limiter.DefaultLimit
	}
	if o.FaviconEndpoint == "" {
		o.FaviconEndpoint = DefaultFaviconEndpoint
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Engine runs link checks and favicon refreshes against a store.
// Network work fans out across goroutines; every bookmark mutation is
// applied by the goroutine that called the job.
type Engine struct {
	store  store.Store
	client Client
	opts   Options
	logger logger.Logger
}

func NewEngine(st store.Store, client Client, opts Options, log logger.Logger) *Engine {
	return &Engine{
		store:  st,
		client: client,
		opts:   opts.withDefaults(),
		logger: log,
	}
}

// fanOut runs work once per target, each call holding a limiter permit, and
// hands every produced result to apply in batches on the calling goroutine.
// work reports false when it has nothing to apply. After cancellation every
// result whose work already returned is still applied and ctx.Err() is
// returned.
func fanOut[T, R any](
	ctx context.Context,
	concurrency int,
	targets []T,
	work func(context.Context, T) (R, bool),
	apply func(context.Context, []R) error,
) error {
	lim := limiter.New(concurrency)
	results := make(chan R)

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			if err := lim.Acquire(gctx); err != nil {
				return nil
			}
			metrics.IncInFlight()
			res, ok := work(gctx, target)
			metrics.DecInFlight()
			lim.Release()

			// The aggregator drains results until close, so a finished
			// outcome is always delivered, cancelled or not.
			if ok {
				results <- res
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	// Writes outlive the caller's cancellation so produced outcomes land.
	writeCtx := context.WithoutCancel(ctx)

	var (
		batch    []R
		applyErr error
	)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := apply(writeCtx, batch); err != nil && applyErr == nil {
			applyErr = err
		}
		batch = batch[:0]
	}

	for res := range results {
		batch = append(batch, res)
		if len(batch) >= flushEvery {
			flush()
		}
	}
	flush()

	if applyErr != nil {
		return fmt.Errorf("failed to apply maintenance results: %w", applyErr)
	}
	return ctx.Err()
}
