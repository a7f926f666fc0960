// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
)

// Factory returns an empty store. The store is closed by the suite.
type Factory func(t *testing.T) store.Store

// Run exercises the store.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("insert and read back", func(t *testing.T) { testInsertAndRead(t, newStore(t)) })
	t.Run("failed update leaves store untouched", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("delete folder nullifies", func(t *testing.T) { testDeleteFolder(t, newStore(t)) })
	t.Run("folder cycle rejected", func(t *testing.T) { testCycle(t, newStore(t)) })
	t.Run("delete all", func(t *testing.T) { testDeleteAll(t, newStore(t)) })
	t.Run("large import and replace", func(t *testing.T) { testLargeReplace(t, newStore(t)) })
	t.Run("bookmark maintenance fields", func(t *testing.T) { testMaintenanceFields(t, newStore(t)) })
	t.Run("reading list", func(t *testing.T) { testReadingList(t, newStore(t)) })
}

func seed(t *testing.T, st store.Store) (dev domain.Folder, bm domain.Bookmark) {
	t.Helper()
	err := st.Update(context.Background(), func(tx store.Tx) error {
		var err error
		dev, err = tx.InsertFolder(domain.Folder{Name: "Dev", SortOrder: 1})
		if err != nil {
			return err
		}
		if _, err = tx.InsertFolder(domain.Folder{Name: "Go", ParentID: dev.ID, ColorName: "green"}); err != nil {
			return err
		}
		bm, err = tx.InsertBookmark(domain.Bookmark{
			URL:       "https://go.dev",
			Name:      "Go",
			CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			FolderID:  dev.ID,
		})
		return err
	})
	require.NoError(t, err)
	return dev, bm
}

func testInsertAndRead(t *testing.T, st store.Store) {
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	dev, bm := seed(t, st)

	folders, err := st.Folders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "Go", folders[0].Name, "SortOrder 0 sorts first")
	assert.Equal(t, dev.ID, folders[0].ParentID)
	assert.Equal(t, "green", folders[0].ColorName)
	assert.Equal(t, domain.DefaultFolderColor, folders[1].ColorName)
	assert.Equal(t, domain.DefaultFolderIcon, folders[1].IconName)

	bookmarks, err := st.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, bm.ID, bookmarks[0].ID)
	assert.Equal(t, "https://go.dev", bookmarks[0].URL)
	assert.Equal(t, dev.ID, bookmarks[0].FolderID)
	assert.Equal(t, domain.LinkUnknown, bookmarks[0].LinkStatus)
	assert.True(t, bookmarks[0].CreatedAt.Equal(bm.CreatedAt))
	assert.Nil(t, bookmarks[0].LastCheckedAt)
}

func testRollback(t *testing.T, st store.Store) {
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	seed(t, st)

	boom := errors.New("boom")
	err := st.Update(ctx, func(tx store.Tx) error {
		tx.DeleteAllBookmarks()
		tx.DeleteAllFolders()
		if _, err := tx.InsertFolder(domain.Folder{Name: "Other"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	folders, err := st.Folders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 2)
	bookmarks, err := st.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Len(t, bookmarks, 1)
}

func testDeleteFolder(t *testing.T, st store.Store) {
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	dev, bm := seed(t, st)

	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteFolder(dev.ID)
	}))

	folders, err := st.Folders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "Go", folders[0].Name)
	assert.Empty(t, folders[0].ParentID)

	bookmarks, err := st.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, bm.ID, bookmarks[0].ID)
	assert.Empty(t, bookmarks[0].FolderID)

	err = st.Update(ctx, func(tx store.Tx) error { return tx.DeleteFolder("missing") })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCycle(t *testing.T, st store.Store) {
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	dev, _ := seed(t, st)

	err := st.Update(ctx, func(tx store.Tx) error {
		for _, f := range tx.Folders() {
			if f.ParentID == dev.ID {
				dev.ParentID = f.ID
				return tx.UpdateFolder(dev)
			}
		}
		return errors.New("child not found")
	})
	require.ErrorIs(t, err, domain.ErrFolderCycle)

	folders, err := st.Folders(ctx)
	require.NoError(t, err)
	for _, f := range folders {
		if f.ID == dev.ID {
			assert.Empty(t, f.ParentID)
		}
	}
}

func testDeleteAll(t *testing.T, st store.Store) {
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	seed(t, st)

	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		tx.DeleteAllBookmarks()
		tx.DeleteAllFolders()
		_, err := tx.InsertBookmark(domain.Bookmark{URL: "https://example.com", Name: "Example"})
		return err
	}))

	folders, err := st.Folders(ctx)
	require.NoError(t, err)
	assert.Empty(t, folders)
	bookmarks, err := st.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "https://example.com", bookmarks[0].URL)
}

const largeCollection = 3500

func insertMany(tx store.Tx, prefix string) error {
	folder, err := tx.InsertFolder(domain.Folder{Name: prefix})
	if err != nil {
		return err
	}
	for i := range largeCollection {
		if _, err := tx.InsertBookmark(domain.Bookmark{
			URL:      fmt.Sprintf("https://%s.example.com/%d", prefix, i),
			Name:     fmt.Sprintf("%s %d", prefix, i),
			FolderID: folder.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func testLargeReplace(t *testing.T, st store.Store) {
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	require.NoError(t, st.Update(ctx, func(tx store.Tx) error { return insertMany(tx, "old") }))
	bookmarks, err := st.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, bookmarks, largeCollection)

	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		tx.DeleteAllBookmarks()
		tx.DeleteAllFolders()
		return insertMany(tx, "new")
	}))

	bookmarks, err = st.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, bookmarks, largeCollection)
	for _, b := range bookmarks {
		assert.Contains(t, b.URL, "https://new.example.com/")
	}
	folders, err := st.Folders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "new", folders[0].Name)
}

func testMaintenanceFields(t *testing.T, st store.Store) {
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	_, bm := seed(t, st)

	checked := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		b, err := tx.Bookmark(bm.ID)
		if err != nil {
			return err
		}
		b.LinkStatus = domain.LinkDead
		b.LastCheckedAt = &checked
		b.FaviconData = []byte{0x89, 'P', 'N', 'G'}
		return tx.UpdateBookmark(b)
	}))

	bookmarks, err := st.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	got := bookmarks[0]
	assert.Equal(t, domain.LinkDead, got.LinkStatus)
	require.NotNil(t, got.LastCheckedAt)
	assert.True(t, got.LastCheckedAt.Equal(checked))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got.FaviconData)

	err = st.Update(ctx, func(tx store.Tx) error {
		return tx.UpdateBookmark(domain.Bookmark{ID: "missing"})
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testReadingList(t *testing.T, st store.Store) {
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	var first domain.ReadingListItem
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		var err error
		if _, err = tx.InsertReadingItem(domain.ReadingListItem{URL: "https://b.example", Name: "B", AddedAt: base.Add(time.Hour)}); err != nil {
			return err
		}
		first, err = tx.InsertReadingItem(domain.ReadingListItem{URL: "https://a.example", Name: "A", AddedAt: base})
		return err
	}))

	items, err := st.ReadingList(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)

	require.NoError(t, st.Update(ctx, func(tx store.Tx) error { return tx.DeleteReadingItem(first.ID) }))
	items, err = st.ReadingList(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://b.example", items[0].URL)

	renamed := items[0]
	renamed.Name = "Bee"
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error { return tx.UpdateReadingItem(renamed) }))
	items, err = st.ReadingList(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Bee", items[0].Name)

	err = st.Update(ctx, func(tx store.Tx) error {
		return tx.UpdateReadingItem(domain.ReadingListItem{ID: "missing"})
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
