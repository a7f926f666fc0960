package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/maintenance"
)

// Maintainer is the subset of *maintenance.Engine the runner drives.
type Maintainer interface {
	CheckLinks(ctx context.Context) (maintenance.LinkReport, error)
	RefreshFavicons(ctx context.Context) (int, error)
}

// MaintenanceRunner runs link checks and favicon refreshes on an interval
// and on demand. Jobs run one at a time on the runner's goroutine; at most
// one manual request per job is queued while another job runs.
type MaintenanceRunner struct {
	engine     Maintainer
	logger     logger.Logger
	interval   time.Duration
	runOnStart bool

	linksTrigger    chan struct{}
	faviconsTrigger chan struct{}
	stopCh          chan struct{}
	done            chan struct{}
	stopOnce        sync.Once
}

func NewMaintenanceRunner(engine Maintainer, log logger.Logger, interval time.Duration, runOnStart bool) *MaintenanceRunner {
	return &MaintenanceRunner{
		engine:          engine,
		logger:          log,
		interval:        interval,
		runOnStart:      runOnStart,
		linksTrigger:    make(chan struct{}, 1),
		faviconsTrigger: make(chan struct{}, 1),
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Start launches the run loop. A non-positive interval disables the
// periodic runs; manual triggers still work.
func (mr *MaintenanceRunner) Start(ctx context.Context) {
	go func() {
		defer close(mr.done)

		var tick <-chan time.Time
		if mr.interval > 0 {
			ticker := time.NewTicker(mr.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		if mr.runOnStart {
			mr.RunAll(ctx)
		}

		for {
			select {
			case <-tick:
				mr.RunAll(ctx)
			case <-mr.linksTrigger:
				mr.logger.Info("manual link check triggered")
				mr.runLinks(ctx)
			case <-mr.faviconsTrigger:
				mr.logger.Info("manual favicon refresh triggered")
				mr.runFavicons(ctx)
			case <-mr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the run loop and waits for the current job to return.
// Call it only after Start.
func (mr *MaintenanceRunner) Stop() {
	mr.stopOnce.Do(func() { close(mr.stopCh) })
	<-mr.done
}

// TriggerLinks queues a link check. It reports false when one is
// already queued.
func (mr *MaintenanceRunner) TriggerLinks() bool {
	return offer(mr.linksTrigger)
}

// TriggerFavicons queues a favicon refresh. It reports false when one is
// already queued.
func (mr *MaintenanceRunner) TriggerFavicons() bool {
	return offer(mr.faviconsTrigger)
}

func offer(ch chan struct{}) bool {
	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunAll runs both jobs back to back.
func (mr *MaintenanceRunner) RunAll(ctx context.Context) {
	mr.runLinks(ctx)
	mr.runFavicons(ctx)
}

func (mr *MaintenanceRunner) runLinks(ctx context.Context) {
	report, err := mr.engine.CheckLinks(ctx)
	if err != nil {
		mr.logger.Error("link check failed",
			logger.Int("valid", report.Valid),
			logger.Int("dead", report.Dead),
			logger.Error(err))
	}
}

func (mr *MaintenanceRunner) runFavicons(ctx context.Context) {
	n, err := mr.engine.RefreshFavicons(ctx)
	if err != nil {
		mr.logger.Error("favicon refresh failed",
			logger.Int("fetched", n),
			logger.Error(err))
	}
}
