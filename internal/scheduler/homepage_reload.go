package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/sources/homepage"
)

// Syncer merges an external bookmarks file into the store.
type Syncer interface {
	Sync(ctx context.Context) (homepage.SyncStats, error)
	Path() string
}

// HomepageReloader merges the Homepage bookmarks file periodically, on
// manual trigger and, when watching, whenever the file changes.
type HomepageReloader struct {
	source        Syncer
	logger        logger.Logger
	interval      time.Duration
	watch         bool
	manualTrigger chan struct{}
	stopCh        chan struct{}
	done          chan struct{}
	stopOnce      sync.Once
}

func NewHomepageReloader(source Syncer, log logger.Logger, interval time.Duration, watch bool) *HomepageReloader {
	return &HomepageReloader{
		source:        source,
		logger:        log,
		interval:      interval,
		watch:         watch,
		manualTrigger: make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start merges the file once and then launches the reload loop.
func (hr *HomepageReloader) Start(ctx context.Context) error {
	if err := hr.Reload(ctx); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	var changes <-chan struct{}
	var fw *FileWatcher
	if hr.watch {
		var err error
		fw, err = NewFileWatcher(hr.source.Path(), DefaultWatchDebounce, hr.logger)
		if err != nil {
			return fmt.Errorf("failed to watch bookmarks file: %w", err)
		}
		changes = fw.Changes()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	if fw != nil {
		go fw.Run(loopCtx)
	}

	go func() {
		defer close(hr.done)
		defer cancel()
		if fw != nil {
			defer func() { _ = fw.Close() }()
		}

		var tick <-chan time.Time
		if hr.interval > 0 {
			ticker := time.NewTicker(hr.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				hr.reloadLogged(ctx)
			case <-hr.manualTrigger:
				hr.logger.Info("manual reload triggered")
				hr.reloadLogged(ctx)
			case <-changes:
				hr.logger.Info("bookmarks file changed")
				hr.reloadLogged(ctx)
			case <-hr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop ends the reload loop. Call it only after a successful Start.
func (hr *HomepageReloader) Stop() {
	hr.stopOnce.Do(func() { close(hr.stopCh) })
	<-hr.done
}

// TriggerReload queues a reload. It reports false when one is already
// queued.
func (hr *HomepageReloader) TriggerReload() bool {
	return offer(hr.manualTrigger)
}

// Reload merges the bookmarks file into the store.
func (hr *HomepageReloader) Reload(ctx context.Context) error {
	hr.logger.Info("reloading bookmarks from homepage",
		logger.String("file", hr.source.Path()))

	if _, err := hr.source.Sync(ctx); err != nil {
		return fmt.Errorf("failed to sync bookmarks: %w", err)
	}
	return nil
}

func (hr *HomepageReloader) reloadLogged(ctx context.Context) {
	if err := hr.Reload(ctx); err != nil {
		hr.logger.Error("failed to reload bookmarks",
			logger.Error(err))
	}
}
