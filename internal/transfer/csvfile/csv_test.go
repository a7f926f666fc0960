package csvfile

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/store/memory"
	"github.com/MrSnakeDoc/stash/internal/transfer"
)

const scenario = "#FOLDERS\nname,sortOrder,parentPath,colorName,iconName\nWork,0,,blue,folder.fill\n\n" +
	"#BOOKMARKS\nurl,name,descriptionText,createdDate,isFavorite,sortOrder,folderPath\n" +
	"https://swift.org,Swift,,2025-01-01T00:00:00Z,true,0,Work\n"

func snapshot(t *testing.T, st store.Store) ([]domain.Folder, []domain.Bookmark) {
	t.Helper()
	folders, err := st.Folders(context.Background())
	require.NoError(t, err)
	bookmarks, err := st.Bookmarks(context.Background())
	require.NoError(t, err)
	return folders, bookmarks
}

func TestImportScenario(t *testing.T) {
	st := memory.New()

	stats, err := ImportBytes(context.Background(), []byte(scenario), st)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Folders: 1, Bookmarks: 1}, stats)

	folders, bookmarks := snapshot(t, st)
	require.Len(t, folders, 1)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "Work", folders[0].Name)
	assert.Equal(t, "Swift", bookmarks[0].Name)
	assert.True(t, bookmarks[0].IsFavorite)
	assert.Equal(t, folders[0].ID, bookmarks[0].FolderID)
	assert.True(t, bookmarks[0].CreatedAt.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestExportLayout(t *testing.T) {
	folders := []domain.Folder{
		{ID: "w", Name: "Work", SortOrder: 1, ColorName: "blue", IconName: "folder.fill"},
		{ID: "h", Name: "Home", SortOrder: 0, ColorName: "green", IconName: "house"},
		{ID: "p", Name: "Projects", SortOrder: 0, ColorName: "red", IconName: "hammer", ParentID: "w"},
	}
	bookmarks := []domain.Bookmark{
		{URL: "https://go.dev", Name: "Go, the language", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), IsFavorite: true, SortOrder: 2, FolderID: "p"},
		{URL: "https://example.com", Name: "Example", CreatedAt: time.Date(2024, 2, 3, 4, 5, 6, 0, time.FixedZone("X", 3600))},
	}

	want := strings.Join([]string{
		"#FOLDERS",
		"name,sortOrder,parentPath,colorName,iconName",
		"Home,0,,green,house",
		"Work,1,,blue,folder.fill",
		"Projects,0,Work,red,hammer",
		"",
		"#BOOKMARKS",
		"url,name,descriptionText,createdDate,isFavorite,sortOrder,folderPath",
		`https://go.dev,"Go, the language",,2025-01-01T00:00:00Z,true,2,Work/Projects`,
		"https://example.com,Example,,2024-02-03T03:05:06Z,false,0,",
	}, "\n")

	assert.Equal(t, want, Export(folders, bookmarks))
}

func TestRoundTrip(t *testing.T) {
	src := memory.New()
	ctx := context.Background()
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	require.NoError(t, src.Update(ctx, func(tx store.Tx) error {
		work, err := tx.InsertFolder(domain.Folder{Name: "Work", SortOrder: 1, ColorName: "purple", IconName: "briefcase"})
		if err != nil {
			return err
		}
		odd, err := tx.InsertFolder(domain.Folder{Name: `Odd, "name"`, ParentID: work.ID, ColorName: "orange", IconName: "star"})
		if err != nil {
			return err
		}
		if _, err := tx.InsertFolder(domain.Folder{Name: "Deep", ParentID: odd.ID}); err != nil {
			return err
		}
		if _, err := tx.InsertBookmark(domain.Bookmark{
			URL:         "https://example.com/a?x=1,2",
			Name:        `The "best", page`,
			Description: "multi\nline, with \"quotes\"",
			CreatedAt:   created,
			IsFavorite:  true,
			SortOrder:   3,
			FolderID:    odd.ID,
		}); err != nil {
			return err
		}
		_, err = tx.InsertBookmark(domain.Bookmark{
			URL:       "https://loose.example",
			Name:      "=SUM(A1:A3)",
			CreatedAt: created.Add(time.Hour),
			SortOrder: -1,
		})
		return err
	}))

	exported, err := ExportStore(ctx, src)
	require.NoError(t, err)

	dst := memory.New()
	stats, err := ImportBytes(ctx, []byte(exported), dst)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Folders: 3, Bookmarks: 2}, stats)

	type folderView struct{ Name, Color, Icon, Path string }
	view := func(st store.Store) ([]folderView, []domain.Bookmark) {
		folders, bookmarks := snapshot(t, st)
		tree := domain.NewFolderTree(folders)
		var out []folderView
		for _, f := range tree.PreOrder(domain.BySortOrder) {
			out = append(out, folderView{f.Name, f.ColorName, f.IconName, tree.FullPath(f.ID)})
		}
		for i := range bookmarks {
			if bookmarks[i].FolderID != "" {
				bookmarks[i].FolderID = tree.FullPath(bookmarks[i].FolderID)
			}
			bookmarks[i].ID = ""
		}
		return out, bookmarks
	}

	wantFolders, wantBookmarks := view(src)
	gotFolders, gotBookmarks := view(dst)
	assert.Equal(t, wantFolders, gotFolders)
	require.Len(t, gotBookmarks, len(wantBookmarks))
	for i := range wantBookmarks {
		assert.Equal(t, wantBookmarks[i].URL, gotBookmarks[i].URL)
		assert.Equal(t, wantBookmarks[i].Name, gotBookmarks[i].Name)
		assert.Equal(t, wantBookmarks[i].Description, gotBookmarks[i].Description)
		assert.Equal(t, wantBookmarks[i].IsFavorite, gotBookmarks[i].IsFavorite)
		assert.Equal(t, wantBookmarks[i].SortOrder, gotBookmarks[i].SortOrder)
		assert.Equal(t, wantBookmarks[i].FolderID, gotBookmarks[i].FolderID)
		assert.True(t, wantBookmarks[i].CreatedAt.Equal(gotBookmarks[i].CreatedAt))
	}
}

func TestInjectionGuard(t *testing.T) {
	name := "=cmd|'/c calc'"
	out := Export([]domain.Folder{{ID: "x", Name: name, ColorName: "blue", IconName: "folder.fill"}}, nil)

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[2], `"'=cmd|'/c calc'"`), "row was %q", lines[2])

	st := memory.New()
	_, err := ImportBytes(context.Background(), []byte(out), st)
	require.NoError(t, err)
	folders, _ := snapshot(t, st)
	require.Len(t, folders, 1)
	assert.Equal(t, name, folders[0].Name)
}

func TestImportIsAtomic(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	_, err := ImportBytes(ctx, []byte(scenario), st)
	require.NoError(t, err)
	beforeFolders, beforeBookmarks := snapshot(t, st)

	broken := "#FOLDERS\nname,sortOrder,parentPath,colorName,iconName\nOther,0,,red,star\n\n" +
		"#BOOKMARKS\nurl,name,descriptionText,createdDate,isFavorite,sortOrder,folderPath\n" +
		"https://a.example,A,,2025-01-01T00:00:00Z,false,0,\n" +
		"https://b.example,B,,2025-01-01T00:00:00Z,false\n"

	_, err = ImportBytes(ctx, []byte(broken), st)
	require.ErrorIs(t, err, ErrInvalidRow)

	var rowErr *InvalidRowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, BookmarksMarker, rowErr.Section)
	assert.Equal(t, 5, rowErr.Fields)
	assert.Equal(t, 8, rowErr.Line)

	afterFolders, afterBookmarks := snapshot(t, st)
	assert.Equal(t, beforeFolders, afterFolders)
	assert.Equal(t, beforeBookmarks, afterBookmarks)
}

func TestImportMissingSections(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		section string
	}{
		{name: "no folders", input: "#BOOKMARKS\nurl,name\n", section: FoldersMarker},
		{name: "no bookmarks", input: "#FOLDERS\nname,sortOrder,parentPath\n", section: BookmarksMarker},
		{name: "empty", input: "", section: FoldersMarker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportBytes(context.Background(), []byte(tt.input), memory.New())
			require.ErrorIs(t, err, ErrMissingSection)
			var secErr *MissingSectionError
			require.ErrorAs(t, err, &secErr)
			assert.Equal(t, tt.section, secErr.Section)
		})
	}
}

func TestImportShortFolderRow(t *testing.T) {
	input := "#FOLDERS\nname,sortOrder,parentPath\nOnly,1\n#BOOKMARKS\nheader\n"
	_, err := ImportBytes(context.Background(), []byte(input), memory.New())
	var rowErr *InvalidRowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, FoldersMarker, rowErr.Section)
}

func TestImportTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("a"), MaxImportSize+1)

	_, err := ImportBytes(context.Background(), big, memory.New())
	assert.ErrorIs(t, err, transfer.ErrFileTooLarge)

	_, err = Import(context.Background(), bytes.NewReader(big), memory.New())
	assert.ErrorIs(t, err, transfer.ErrFileTooLarge)
}

func TestImportDefaultsAndLenientValues(t *testing.T) {
	input := "#FOLDERS\nname,sortOrder,parentPath,colorName,iconName\n" +
		"Root,abc,\n" +
		"Child,2,Root,,\n" +
		"Orphan,0,Nowhere/At/All,red,star\n" +
		"\n#BOOKMARKS\nurl,name,descriptionText,createdDate,isFavorite,sortOrder,folderPath\n" +
		"ftp://files.example,Files,,2025-01-01T00:00:00Z,false,0,\n" +
		"https://a.example,A,,not-a-date,TRUE,x,Root/Child\n" +
		"https://b.example,B,,2025-01-01T00:00:00Z,yes,1,Missing\n"

	st := memory.New()
	before := time.Now().UTC().Add(-time.Second)
	stats, err := ImportBytes(context.Background(), []byte(input), st)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Folders: 3, Bookmarks: 2, Skipped: 1}, stats)

	folders, bookmarks := snapshot(t, st)
	tree := domain.NewFolderTree(folders)
	byName := map[string]domain.Folder{}
	for _, f := range folders {
		byName[f.Name] = f
	}

	assert.Equal(t, 0, byName["Root"].SortOrder)
	assert.Equal(t, domain.DefaultFolderColor, byName["Root"].ColorName)
	assert.Equal(t, domain.DefaultFolderIcon, byName["Child"].IconName)
	assert.Equal(t, "Root/Child", tree.FullPath(byName["Child"].ID))
	assert.Empty(t, byName["Orphan"].ParentID)

	byURL := map[string]domain.Bookmark{}
	for _, b := range bookmarks {
		byURL[b.URL] = b
	}
	a := byURL["https://a.example"]
	assert.True(t, a.IsFavorite)
	assert.Equal(t, 0, a.SortOrder)
	assert.True(t, a.CreatedAt.After(before))
	assert.Equal(t, byName["Child"].ID, a.FolderID)

	b := byURL["https://b.example"]
	assert.False(t, b.IsFavorite)
	assert.Empty(t, b.FolderID)
}

func TestImportReplacesEverything(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.Update(ctx, func(tx store.Tx) error {
		_, err := tx.InsertBookmark(domain.Bookmark{URL: "https://old.example", Name: "Old"})
		return err
	}))

	_, err := ImportBytes(ctx, []byte(scenario), st)
	require.NoError(t, err)

	_, bookmarks := snapshot(t, st)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "https://swift.org", bookmarks[0].URL)
}
