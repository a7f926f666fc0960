package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/store/storetest"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client), mr
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, _ := newTestStore(t)
		return st
	})
}

func TestUpdateWritesKeysAndSets(t *testing.T) {
	st, mr := newTestStore(t)
	defer func() { _ = st.Close() }()

	var bm domain.Bookmark
	require.NoError(t, st.Update(context.Background(), func(tx store.Tx) error {
		var err error
		bm, err = tx.InsertBookmark(domain.Bookmark{URL: "https://go.dev", Name: "Go"})
		return err
	}))

	assert.True(t, mr.Exists(BookmarkKey(bm.ID)))
	members, err := mr.Members(KeyAllBookmarks)
	require.NoError(t, err)
	assert.Equal(t, []string{bm.ID}, members)

	require.NoError(t, st.Update(context.Background(), func(tx store.Tx) error {
		return tx.DeleteBookmark(bm.ID)
	}))
	assert.False(t, mr.Exists(BookmarkKey(bm.ID)))
}

func TestDanglingIDIsSkipped(t *testing.T) {
	st, mr := newTestStore(t)
	defer func() { _ = st.Close() }()

	_, err := mr.SAdd(KeyAllBookmarks, "ghost")
	require.NoError(t, err)

	bookmarks, err := st.Bookmarks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bookmarks)
}

func TestPing(t *testing.T) {
	st, mr := newTestStore(t)
	defer func() { _ = st.Close() }()

	require.NoError(t, st.Ping(context.Background()))
	mr.Close()
	assert.Error(t, st.Ping(context.Background()))
}

func TestUpdateRetriesAfterConcurrentRecordWrite(t *testing.T) {
	st, mr := newTestStore(t)
	defer func() { _ = st.Close() }()
	other := NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer func() { _ = other.Close() }()

	ctx := context.Background()
	var bm domain.Bookmark
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		var err error
		bm, err = tx.InsertBookmark(domain.Bookmark{URL: "https://go.dev", Name: "Go"})
		return err
	}))

	runs := 0
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		runs++
		if runs == 1 {
			// Another process renames the bookmark; the id sets do not change.
			require.NoError(t, other.Update(ctx, func(otx store.Tx) error {
				b, err := otx.Bookmark(bm.ID)
				if err != nil {
					return err
				}
				b.Name = "The Go Programming Language"
				return otx.UpdateBookmark(b)
			}))
		}
		b, err := tx.Bookmark(bm.ID)
		if err != nil {
			return err
		}
		b.LinkStatus = domain.LinkValid
		return tx.UpdateBookmark(b)
	}))
	assert.Equal(t, 2, runs, "the first commit must lose the race and rerun")

	bookmarks, err := st.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "The Go Programming Language", bookmarks[0].Name)
	assert.Equal(t, domain.LinkValid, bookmarks[0].LinkStatus)
}

func TestUpdateGivesUpAfterRepeatedConflicts(t *testing.T) {
	st, mr := newTestStore(t)
	defer func() { _ = st.Close() }()

	runs := 0
	err := st.Update(context.Background(), func(tx store.Tx) error {
		runs++
		_, err := mr.Incr(KeyVersion, 1)
		require.NoError(t, err)
		_, err = tx.InsertBookmark(domain.Bookmark{URL: "https://go.dev", Name: "Go"})
		return err
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, maxAttempts, runs)
	assert.False(t, mr.Exists(KeyAllBookmarks))
}
