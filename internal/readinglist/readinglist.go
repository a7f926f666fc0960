// Package readinglist keeps a short, bounded queue of links to read later.
// Items can be promoted into regular bookmarks.
package readinglist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/urlcanon"
)

const DefaultLimit = 10

var (
	ErrInvalidURL = errors.New("invalid url")
	ErrDuplicate  = errors.New("url already in reading list")
	ErrFull       = errors.New("reading list is full")
)

// Titler resolves page titles in the background.
// *maintenance.TitleLookup satisfies it.
type Titler interface {
	Trigger(rawURL string, commit func(title string))
}

type Options struct {
	// Limit caps the number of queued items. Zero means DefaultLimit.
	Limit int
	Now   func() time.Time
	// Titles, when set, names items added without a name.
	Titles Titler
}

type List struct {
	store  store.Store
	limit  int
	now    func() time.Time
	titles Titler
	logger logger.Logger
}

func New(st store.Store, opts Options, log logger.Logger) *List {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &List{
		store:  st,
		limit:  opts.Limit,
		now:    opts.Now,
		titles: opts.Titles,
		logger: log,
	}
}

func (l *List) Limit() int { return l.limit }

// Items returns the queue, oldest first.
func (l *List) Items(ctx context.Context) ([]domain.ReadingListItem, error) {
	items, err := l.store.ReadingList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reading list: %w", err)
	}
	return items, nil
}

// Add queues rawURL. It fails with ErrFull when the list is at capacity.
func (l *List) Add(ctx context.Context, rawURL, name string) (domain.ReadingListItem, error) {
	item, _, err := l.add(ctx, rawURL, name, false)
	return item, err
}

// AddEvictingOldest queues rawURL, removing the oldest item first when the
// list is at capacity. The evicted item, if any, is returned.
func (l *List) AddEvictingOldest(ctx context.Context, rawURL, name string) (domain.ReadingListItem, *domain.ReadingListItem, error) {
	return l.add(ctx, rawURL, name, true)
}

func (l *List) add(ctx context.Context, rawURL, name string, evict bool) (domain.ReadingListItem, *domain.ReadingListItem, error) {
	if !urlcanon.IsValid(strings.TrimSpace(rawURL)) {
		return domain.ReadingListItem{}, nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	canonical := urlcanon.Canonicalize(rawURL)

	name = strings.TrimSpace(name)
	unnamed := name == ""
	if unnamed {
		name = canonical
	}

	var (
		added   domain.ReadingListItem
		evicted *domain.ReadingListItem
	)
	err := l.store.Update(ctx, func(tx store.Tx) error {
		evicted = nil

		items := tx.ReadingList()
		for _, it := range items {
			if urlcanon.SameBookmark(it.URL, canonical) {
				return ErrDuplicate
			}
		}

		if len(items) >= l.limit {
			if !evict {
				return ErrFull
			}
			oldest := items[0]
			if err := tx.DeleteReadingItem(oldest.ID); err != nil {
				return err
			}
			evicted = &oldest
		}

		var err error
		added, err = tx.InsertReadingItem(domain.ReadingListItem{
			URL:     canonical,
			Name:    name,
			AddedAt: l.now(),
		})
		return err
	})
	if err != nil {
		return domain.ReadingListItem{}, nil, fmt.Errorf("failed to add to reading list: %w", err)
	}

	l.logger.Info("added to reading list",
		logger.String("url", canonical),
		logger.Bool("evicted", evicted != nil))

	if unnamed && l.titles != nil {
		l.titles.Trigger(canonical, func(title string) { l.rename(added.ID, canonical, title) })
	}

	return added, evicted, nil
}

// rename replaces a placeholder name with a fetched title. A name the user
// changed in the meantime is kept.
func (l *List) rename(id, placeholder, title string) {
	err := l.store.Update(context.Background(), func(tx store.Tx) error {
		for _, it := range tx.ReadingList() {
			if it.ID != id {
				continue
			}
			if it.Name != placeholder {
				return nil
			}
			it.Name = title
			return tx.UpdateReadingItem(it)
		}
		return nil
	})
	if err != nil {
		l.logger.Warn("failed to store reading list title",
			logger.String("id", id),
			logger.Error(err))
	}
}

func (l *List) Remove(ctx context.Context, id string) error {
	err := l.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteReadingItem(id)
	})
	if err != nil {
		return fmt.Errorf("failed to remove reading list item: %w", err)
	}
	return nil
}

// Promote moves an item into the bookmarks, filed under folderID (empty for
// uncategorized). When the URL is already bookmarked the existing bookmark
// is returned and created is false. The item leaves the list either way.
func (l *List) Promote(ctx context.Context, id, folderID string) (bookmark domain.Bookmark, created bool, err error) {
	err = l.store.Update(ctx, func(tx store.Tx) error {
		created = false

		var (
			item  domain.ReadingListItem
			found bool
		)
		for _, it := range tx.ReadingList() {
			if it.ID == id {
				item, found = it, true
				break
			}
		}
		if !found {
			return fmt.Errorf("reading list item %s: %w", id, store.ErrNotFound)
		}

		if err := tx.DeleteReadingItem(id); err != nil {
			return err
		}

		for _, b := range tx.Bookmarks() {
			if urlcanon.SameBookmark(b.URL, item.URL) {
				bookmark = b
				return nil
			}
		}

		var err error
		bookmark, err = tx.InsertBookmark(domain.Bookmark{
			URL:         item.URL,
			Name:        item.Name,
			CreatedAt:   l.now(),
			FolderID:    folderID,
			FaviconData: item.FaviconData,
			LinkStatus:  domain.LinkUnknown,
		})
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, false, fmt.Errorf("failed to promote reading list item: %w", err)
	}
	return bookmark, created, nil
}
