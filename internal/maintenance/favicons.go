package maintenance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/metrics"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/urlcanon"
)

const (
	sourceMetadata = "metadata"
	sourceFallback = "fallback"
	sourceNone     = "none"
)

type faviconOutcome struct {
	id   string
	data []byte
}

// RefreshFavicons fetches an icon for every bookmark that has none. The
// page's own icon links are tried first, then the fallback endpoint.
// It returns how many bookmarks were given an icon.
func (e *Engine) RefreshFavicons(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.ObserveMaintenanceRun("favicons", time.Since(start)) }()

	bookmarks, err := e.store.Bookmarks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	targets := make([]domain.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if !b.HasFavicon() {
			targets = append(targets, b)
		}
	}

	e.logger.Info("refreshing favicons", logger.Int("missing", len(targets)))

	fetched := 0
	apply := func(ctx context.Context, batch []faviconOutcome) error {
		n := 0
		err := e.store.Update(ctx, func(tx store.Tx) error {
			n = 0
			for _, out := range batch {
				b, err := tx.Bookmark(out.id)
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if b.HasFavicon() {
					continue
				}
				b.FaviconData = out.data
				if err := tx.UpdateBookmark(b); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return err
		}
		fetched += n
		return nil
	}

	err = fanOut(ctx, e.opts.Concurrency, targets, e.fetchFavicon, apply)

	e.logger.Info("favicon refresh finished",
		logger.Int("fetched", fetched),
		logger.Duration("took", time.Since(start)))

	return fetched, err
}

func (e *Engine) fetchFavicon(ctx context.Context, b domain.Bookmark) (faviconOutcome, bool) {
	out := faviconOutcome{id: b.ID}

	host := urlcanon.Host(b.URL)
	if !urlcanon.IsValid(b.URL) || host == "" {
		metrics.ObserveFavicon(sourceNone)
		return out, false
	}

	md, err := e.client.Metadata(ctx, b.URL)
	if err != nil {
		e.logger.Debug("metadata lookup failed",
			logger.String("url", b.URL),
			logger.Error(err))
	}
	for _, icon := range md.IconURLs {
		if data, ok := e.downloadIcon(ctx, icon); ok {
			out.data = data
			metrics.ObserveFavicon(sourceMetadata)
			return out, true
		}
	}

	if ctx.Err() != nil {
		return out, false
	}

	fallback := fmt.Sprintf(e.opts.FaviconEndpoint, url.QueryEscape(host))
	if data, ok := e.downloadIcon(ctx, fallback); ok {
		out.data = data
		metrics.ObserveFavicon(sourceFallback)
		return out, true
	}

	metrics.ObserveFavicon(sourceNone)
	return out, false
}

func (e *Engine) downloadIcon(ctx context.Context, iconURL string) ([]byte, bool) {
	resp, err := e.client.Get(ctx, iconURL)
	if err != nil {
		e.logger.Debug("icon download failed",
			logger.String("icon", iconURL),
			logger.Error(err))
		return nil, false
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false
	}

	data, err := NormalizeIcon(resp.Body)
	if err != nil {
		e.logger.Debug("icon rejected",
			logger.String("icon", iconURL),
			logger.Error(err))
		return nil, false
	}
	return data, true
}
