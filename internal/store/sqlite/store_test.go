package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/store/storetest"
	"github.com/MrSnakeDoc/stash/internal/transfer/csvfile"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := Open(":memory:")
		require.NoError(t, err)
		return st
	})
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		f, err := tx.InsertFolder(domain.Folder{Name: "Reading"})
		if err != nil {
			return err
		}
		_, err = tx.InsertBookmark(domain.Bookmark{URL: "https://a.example", Name: "A", FolderID: f.ID, IsFavorite: true})
		return err
	}))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	bookmarks, err := st.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	assert.True(t, bookmarks[0].IsFavorite)
	assert.NotEmpty(t, bookmarks[0].FolderID)
	require.NoError(t, st.Ping(ctx))
}

func TestLargeCSVImport(t *testing.T) {
	const rows = 5000
	var b strings.Builder
	b.WriteString("#FOLDERS\nname,sortOrder,parentPath,colorName,iconName\nWork,0,,blue,folder.fill\n\n")
	b.WriteString("#BOOKMARKS\nurl,name,descriptionText,createdDate,isFavorite,sortOrder,folderPath\n")
	for i := range rows {
		fmt.Fprintf(&b, "https://example.com/%d,Page %d,,2025-01-01T00:00:00Z,false,%d,Work\n", i, i, i)
	}

	st, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	stats, err := csvfile.ImportBytes(ctx, []byte(b.String()), st)
	require.NoError(t, err)
	assert.Equal(t, csvfile.ImportStats{Folders: 1, Bookmarks: rows}, stats)

	// Replacing the collection deletes every previous row.
	_, err = csvfile.ImportBytes(ctx, []byte(b.String()), st)
	require.NoError(t, err)
	bookmarks, err := st.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Len(t, bookmarks, rows)
}
