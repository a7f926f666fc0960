package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/stash/internal/logger"
)

const DefaultWatchDebounce = 250 * time.Millisecond

// FileWatcher reports changes to one file. The parent directory is watched
// so that editors replacing the file through a rename are still seen.
// Bursts of events are coalesced into one notification.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	delay   time.Duration
	changes chan struct{}
	logger  logger.Logger
}

func NewFileWatcher(path string, delay time.Duration, log logger.Logger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watched path: %w", err)
	}
	if delay <= 0 {
		delay = DefaultWatchDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{
		watcher: w,
		path:    abs,
		delay:   delay,
		changes: make(chan struct{}, 1),
		logger:  log,
	}, nil
}

// Changes receives one value per settled burst of changes.
func (fw *FileWatcher) Changes() <-chan struct{} { return fw.changes }

// Run processes events until ctx is done or the watcher is closed.
func (fw *FileWatcher) Run(ctx context.Context) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.path || ev.Op == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(fw.delay)
			} else {
				timer.Reset(fw.delay)
			}
			fire = timer.C
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error",
				logger.String("path", fw.path),
				logger.Error(err))
		case <-fire:
			fire = nil
			offer(fw.changes)
		}
	}
}

func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
