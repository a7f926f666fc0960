package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/metrics"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/urlcanon"
)

// LinkReport counts the outcomes of a link check run.
type LinkReport struct {
	Valid int `json:"valid"`
	Dead  int `json:"dead"`
}

type linkOutcome struct {
	id        string
	status    domain.LinkStatus
	checkedAt time.Time
}

// CheckLinks issues a HEAD request for every bookmark and records whether
// it answered with a status in [200,400). Transport failures and unparsable
// URLs count as dead. Every checked bookmark gets LastCheckedAt stamped.
func (e *Engine) CheckLinks(ctx context.Context) (LinkReport, error) {
	start := time.Now()
	defer func() { metrics.ObserveMaintenanceRun("links", time.Since(start)) }()

	var report LinkReport

	bookmarks, err := e.store.Bookmarks(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	e.logger.Info("checking links", logger.Int("bookmarks", len(bookmarks)))

	apply := func(ctx context.Context, batch []linkOutcome) error {
		var tally LinkReport
		err := e.store.Update(ctx, func(tx store.Tx) error {
			tally = LinkReport{}
			for _, out := range batch {
				b, err := tx.Bookmark(out.id)
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				checked := out.checkedAt
				b.LinkStatus = out.status
				b.LastCheckedAt = &checked
				if err := tx.UpdateBookmark(b); err != nil {
					return err
				}
				if out.status == domain.LinkValid {
					tally.Valid++
				} else {
					tally.Dead++
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		report.Valid += tally.Valid
		report.Dead += tally.Dead
		return nil
	}

	err = fanOut(ctx, e.opts.Concurrency, bookmarks, e.checkLink, apply)

	e.logger.Info("link check finished",
		logger.Int("valid", report.Valid),
		logger.Int("dead", report.Dead),
		logger.Duration("took", time.Since(start)))

	return report, err
}

func (e *Engine) checkLink(ctx context.Context, b domain.Bookmark) (linkOutcome, bool) {
	out := linkOutcome{id: b.ID, status: domain.LinkDead}

	if urlcanon.IsValid(b.URL) {
		code, err := e.client.Head(ctx, b.URL)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return out, false
			}
			e.logger.Debug("link check failed",
				logger.String("url", b.URL),
				logger.Error(err))
		default:
			out.status = domain.StatusForCode(code)
			if out.status == domain.LinkDead {
				e.logger.Debug("link check returned error status",
					logger.String("url", b.URL),
					logger.Int("status", code))
			}
		}
	}

	out.checkedAt = e.opts.Now()
	metrics.ObserveLinkCheck(string(out.status))
	return out, true
}
