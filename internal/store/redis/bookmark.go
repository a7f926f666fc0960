package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/redis/go-redis/v9"
)

// reader is the read subset shared by *redis.Client and *redis.Tx.
type reader interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// loadSnapshot reads every collection. Ids whose value is missing are skipped.
func loadSnapshot(ctx context.Context, r reader) (*store.Snapshot, error) {
	snap := store.NewSnapshot()
	if err := loadAll(ctx, r, KeyAllFolders, FolderKey, snap.Folders); err != nil {
		return nil, fmt.Errorf("failed to load folders: %w", err)
	}
	if err := loadAll(ctx, r, KeyAllBookmarks, BookmarkKey, snap.Bookmarks); err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}
	if err := loadAll(ctx, r, KeyAllReadingItems, ReadingItemKey, snap.ReadingList); err != nil {
		return nil, fmt.Errorf("failed to load reading list: %w", err)
	}
	return snap, nil
}

func loadAll[V any](ctx context.Context, r reader, setKey string, keyOf func(string) string, out map[string]V) error {
	ids, err := r.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get IDs: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyOf(id)
	}
	vals, err := r.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to get values: %w", err)
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec V
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", keys[i], err)
		}
		out[ids[i]] = rec
	}
	return nil
}

type write struct {
	key, setKey, id string
	data          []byte
}

// planWrites marshals every upsert up front so the MULTI block never aborts halfway.
func planWrites(snap *store.Snapshot, c store.Changes) (sets []write, dels []write, err error) {
	sets, err = marshalAll(c.UpsertFolders, snap.Folders, FolderKey, KeyAllFolders)
	if err != nil {
		return nil, nil, err
	}
	more, err := marshalAll(c.UpsertBookmarks, snap.Bookmarks, BookmarkKey, KeyAllBookmarks)
	if err != nil {
		return nil, nil, err
	}
	sets = append(sets, more...)
	more, err = marshalAll(c.UpsertReadingList, snap.ReadingList, ReadingItemKey, KeyAllReadingItems)
	if err != nil {
		return nil, nil, err
	}
	sets = append(sets, more...)

	for _, id := range c.DeleteFolders {
		dels = append(dels, write{key: FolderKey(id), setKey: KeyAllFolders, id: id})
	}
	for _, id := range c.DeleteBookmarks {
		dels = append(dels, write{key: BookmarkKey(id), setKey: KeyAllBookmarks, id: id})
	}
	for _, id := range c.DeleteReadingList {
		dels = append(dels, write{key: ReadingItemKey(id), setKey: KeyAllReadingItems, id: id})
	}
	return sets, dels, nil
}

func marshalAll[V any](ids []string, from map[string]V, keyOf func(string) string, setKey string) ([]write, error) {
	out := make([]write, 0, len(ids))
	for _, id := range ids {
		data, err := json.Marshal(from[id])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", id, err)
		}
		out = append(out, write{key: keyOf(id), setKey: setKey, id: id, data: data})
	}
	return out, nil
}
