package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/redis/go-redis/v9"
)

// ErrConflict is returned when other writers kept changing the data set
// through every attempt of an Update. Nothing was written.
var ErrConflict = errors.New("concurrent modification")

// maxAttempts bounds how often Update reloads and reruns fn after losing a
// race with another process.
const maxAttempts = 5

// Store keeps every record as a JSON value plus one id set per collection.
// Update loads a snapshot under WATCH and commits the difference in a single
// MULTI/EXEC block, retrying from a fresh snapshot when the commit loses a
// race. fn may therefore run more than once.
type Store struct {
	client  *redis.Client
	writeMu sync.Mutex
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Folders(ctx context.Context) ([]domain.Folder, error) {
	snap, err := loadSnapshot(ctx, s.client)
	if err != nil {
		return nil, err
	}
	return snap.SortedFolders(), nil
}

func (s *Store) Bookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	snap, err := loadSnapshot(ctx, s.client)
	if err != nil {
		return nil, err
	}
	return snap.SortedBookmarks(), nil
}

func (s *Store) ReadingList(ctx context.Context) ([]domain.ReadingListItem, error) {
	snap, err := loadSnapshot(ctx, s.client)
	if err != nil {
		return nil, err
	}
	return snap.SortedReadingList(), nil
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			return commit(ctx, rtx, fn)
		}, watchKeys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return ErrConflict
}

func commit(ctx context.Context, rtx *redis.Tx, fn func(tx store.Tx) error) error {
	snap, err := loadSnapshot(ctx, rtx)
	if err != nil {
		return err
	}

	tx := store.NewSnapshotTx(snap)
	if err := fn(tx); err != nil {
		return err
	}

	changes := tx.Changes()
	if changes.Empty() {
		return nil
	}
	sets, dels, err := planWrites(tx.Snapshot(), changes)
	if err != nil {
		return err
	}

	_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range sets {
			pipe.Set(ctx, w.key, w.data, 0)
			pipe.SAdd(ctx, w.setKey, w.id)
		}
		for _, w := range dels {
			pipe.Del(ctx, w.key)
			pipe.SRem(ctx, w.setKey, w.id)
		}
		pipe.Incr(ctx, KeyVersion)
		return nil
	})
	if errors.Is(err, redis.TxFailedErr) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
