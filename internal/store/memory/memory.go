// Package memory is an in-process Store. Each Update works on a cloned
// snapshot that replaces the current one only when the callback succeeds.
package memory

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	snap *store.Snapshot

	// writeMu serialises Update so callbacks never interleave.
	writeMu sync.Mutex
}

func New() *Store {
	return &Store{snap: store.NewSnapshot()}
}

func (s *Store) current() *store.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) Folders(_ context.Context) ([]domain.Folder, error) {
	return s.current().SortedFolders(), nil
}

func (s *Store) Bookmarks(_ context.Context) ([]domain.Bookmark, error) {
	return s.current().SortedBookmarks(), nil
}

func (s *Store) ReadingList(_ context.Context) ([]domain.ReadingListItem, error) {
	return s.current().SortedReadingList(), nil
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := store.NewSnapshotTx(s.current().Clone())
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.snap = tx.Snapshot()
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
