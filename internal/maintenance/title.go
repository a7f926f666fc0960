package maintenance

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/urlcanon"
	"github.com/MrSnakeDoc/stash/internal/webclient"
)

const DefaultTitleDelay = 600 * time.Millisecond

type MetadataFetcher interface {
	Metadata(ctx context.Context, rawURL string) (webclient.Metadata, error)
}

// TitleLookup debounces page title lookups. Each Trigger supersedes the
// previous one: the pending lookup is cancelled and only the latest request
// may commit.
type TitleLookup struct {
	fetcher MetadataFetcher
	delay   time.Duration
	logger  logger.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func NewTitleLookup(fetcher MetadataFetcher, delay time.Duration, log logger.Logger) *TitleLookup {
	if delay <= 0 {
		delay = DefaultTitleDelay
	}
	return &TitleLookup{
		fetcher: fetcher,
		delay:   delay,
		logger:  log,
	}
}

// Trigger schedules a lookup of rawURL after the debounce delay. commit
// receives the trimmed, non-empty title and runs with the lookup's lock
// held, so it must not call back into the TitleLookup.
func (l *TitleLookup) Trigger(rawURL string, commit func(title string)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
	if l.closed || !urlcanon.IsValid(rawURL) {
		return
	}

	seq := l.seq
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()

		timer := time.NewTimer(l.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		md, err := l.fetcher.Metadata(ctx, rawURL)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Debug("title lookup failed",
					logger.String("url", rawURL),
					logger.Error(err))
			}
			return
		}
		title := strings.TrimSpace(md.Title)
		if title == "" {
			return
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if seq == l.seq {
			commit(title)
		}
	}()
}

// Close cancels any pending lookup and waits for it to exit. Later
// triggers are ignored.
func (l *TitleLookup) Close() {
	l.mu.Lock()
	l.closed = true
	l.seq++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()

	l.wg.Wait()
}
