package homepage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/urlcanon"
)

// SyncStats summarises one merge of bookmarks.yaml into the store.
type SyncStats struct {
	FoldersCreated int `json:"folders_created"`
	BookmarksAdded int `json:"bookmarks_added"`
	Skipped        int `json:"skipped"`
}

// Source merges a Homepage bookmarks file into the store. The merge is
// additive: categories become root folders, reused by case-insensitive
// name, and bookmarks whose canonical URL is already stored are skipped.
// Nothing is ever removed.
type Source struct {
	loader *Loader
	store  store.Store
	now    func() time.Time
	logger logger.Logger
}

func NewSource(filePath string, st store.Store, log logger.Logger) *Source {
	return &Source{
		loader: NewLoader(filePath),
		store:  st,
		now:    time.Now,
		logger: log,
	}
}

func (s *Source) Path() string { return s.loader.Path() }

// Sync loads the file and merges it in a single store update.
func (s *Source) Sync(ctx context.Context) (SyncStats, error) {
	config, err := s.loader.Load()
	if err != nil {
		return SyncStats{}, err
	}

	entries := MapBookmarks(config)
	stats, err := s.Merge(ctx, entries)
	if err != nil {
		return stats, err
	}

	s.logger.Info("synced homepage bookmarks",
		logger.String("file", s.loader.Path()),
		logger.Int("entries", len(entries)),
		logger.Int("folders_created", stats.FoldersCreated),
		logger.Int("bookmarks_added", stats.BookmarksAdded),
		logger.Int("skipped", stats.Skipped))

	return stats, nil
}

// Merge adds entries to the store.
func (s *Source) Merge(ctx context.Context, entries []Entry) (SyncStats, error) {
	var stats SyncStats
	start := s.now()

	err := s.store.Update(ctx, func(tx store.Tx) error {
		stats = SyncStats{}

		roots := make(map[string]domain.Folder)
		nextOrder := 0
		for _, f := range tx.Folders() {
			if f.ParentID != "" {
				continue
			}
			key := strings.ToLower(f.Name)
			if _, ok := roots[key]; !ok {
				roots[key] = f
			}
			nextOrder = max(nextOrder, f.SortOrder+1)
		}

		seen := make(map[string]struct{})
		for _, b := range tx.Bookmarks() {
			seen[urlcanon.Canonicalize(b.URL)] = struct{}{}
		}

		for _, e := range entries {
			if !urlcanon.IsValid(e.URL) {
				stats.Skipped++
				continue
			}
			canonical := urlcanon.Canonicalize(e.URL)
			if _, dup := seen[canonical]; dup {
				stats.Skipped++
				continue
			}

			folderID := ""
			if e.Category != "" {
				key := strings.ToLower(e.Category)
				folder, ok := roots[key]
				if !ok {
					var err error
					folder, err = tx.InsertFolder(domain.Folder{Name: e.Category, SortOrder: nextOrder})
					if err != nil {
						return err
					}
					nextOrder++
					roots[key] = folder
					stats.FoldersCreated++
				}
				folderID = folder.ID
			}

			name := e.Name
			if name == "" {
				name = canonical
			}
			if _, err := tx.InsertBookmark(domain.Bookmark{
				URL:         canonical,
				Name:        name,
				Description: e.Description,
				CreatedAt:   start.Add(time.Duration(stats.BookmarksAdded) * time.Millisecond),
				FolderID:    folderID,
				LinkStatus:  domain.LinkUnknown,
			}); err != nil {
				return err
			}
			seen[canonical] = struct{}{}
			stats.BookmarksAdded++
		}
		return nil
	})
	if err != nil {
		return SyncStats{}, fmt.Errorf("failed to merge homepage bookmarks: %w", err)
	}

	return stats, nil
}
