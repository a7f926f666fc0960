// Package csvfile reads and writes the tagged two-section CSV snapshot.
//
// An export holds every folder and bookmark; an import replaces the whole
// collection in one store transaction, or changes nothing.
package csvfile

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/transfer"
	"github.com/MrSnakeDoc/stash/internal/urlcanon"
)

// MaxImportSize caps the size of an import payload.
const MaxImportSize = 5 << 20

const (
	FoldersMarker   = "#FOLDERS"
	BookmarksMarker = "#BOOKMARKS"

	foldersHeader   = "name,sortOrder,parentPath,colorName,iconName"
	bookmarksHeader = "url,name,descriptionText,createdDate,isFavorite,sortOrder,folderPath"

	minFolderFields   = 3
	minBookmarkFields = 7

	dateLayout = time.RFC3339
)

// ImportStats summarises a successful import.
type ImportStats struct {
	Folders   int `json:"folders"`
	Bookmarks int `json:"bookmarks"`
	Skipped   int `json:"skipped"`
}

// Export renders folders in pre-order (siblings by SortOrder) followed by
// bookmarks in the given order. Lines are joined with "\n".
func Export(folders []domain.Folder, bookmarks []domain.Bookmark) string {
	tree := domain.NewFolderTree(folders)

	lines := make([]string, 0, len(folders)+len(bookmarks)+5)
	lines = append(lines, FoldersMarker, foldersHeader)
	for _, f := range tree.PreOrder(domain.BySortOrder) {
		lines = append(lines, joinFields(
			f.Name,
			strconv.Itoa(f.SortOrder),
			tree.ParentPath(f.ID),
			f.ColorName,
			f.IconName,
		))
	}

	lines = append(lines, "", BookmarksMarker, bookmarksHeader)
	for _, b := range bookmarks {
		folderPath := ""
		if b.FolderID != "" {
			folderPath = tree.FullPath(b.FolderID)
		}
		lines = append(lines, joinFields(
			b.URL,
			b.Name,
			b.Description,
			b.CreatedAt.UTC().Format(dateLayout),
			strconv.FormatBool(b.IsFavorite),
			strconv.Itoa(b.SortOrder),
			folderPath,
		))
	}

	return strings.Join(lines, "\n")
}

// ExportStore renders the current content of r.
func ExportStore(ctx context.Context, r store.Reader) (string, error) {
	folders, err := r.Folders(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load folders: %w", err)
	}
	bookmarks, err := r.Bookmarks(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load bookmarks: %w", err)
	}
	return Export(folders, bookmarks), nil
}

// FolderRow is a validated folder record.
type FolderRow struct {
	Name       string
	SortOrder  int
	ParentPath string
	ColorName  string
	IconName   string
}

// Path is the slash-joined path of the folder itself.
func (r FolderRow) Path() string {
	if r.ParentPath == "" {
		return r.Name
	}
	return r.ParentPath + "/" + r.Name
}

// BookmarkRow is a validated bookmark record.
type BookmarkRow struct {
	URL         string
	Name        string
	Description string
	CreatedAt   time.Time
	IsFavorite  bool
	SortOrder   int
	FolderPath  string
}

// Document is a fully parsed import.
type Document struct {
	Folders   []FolderRow
	Bookmarks []BookmarkRow
	// Skipped counts bookmark rows dropped for an invalid URL.
	Skipped int
}

// Parse validates the whole document without touching any store.
// now stands in for unparsable creation dates.
func Parse(text string, now time.Time) (*Document, error) {
	records := splitRecords(text)

	foldersAt := findMarker(records, FoldersMarker)
	if foldersAt < 0 {
		return nil, &MissingSectionError{Section: FoldersMarker}
	}
	bookmarksAt := findMarker(records, BookmarksMarker)
	if bookmarksAt < 0 {
		return nil, &MissingSectionError{Section: BookmarksMarker}
	}

	doc := &Document{}
	for _, rec := range section(records, foldersAt, bookmarksAt) {
		fields := ParseRow(rec.raw)
		if len(fields) < minFolderFields {
			return nil, &InvalidRowError{Section: FoldersMarker, Line: rec.line, Fields: len(fields), Want: minFolderFields, Row: rec.raw}
		}
		doc.Folders = append(doc.Folders, parseFolder(fields))
	}

	for _, rec := range section(records, bookmarksAt, foldersAt) {
		fields := ParseRow(rec.raw)
		if len(fields) < minBookmarkFields {
			return nil, &InvalidRowError{Section: BookmarksMarker, Line: rec.line, Fields: len(fields), Want: minBookmarkFields, Row: rec.raw}
		}
		row := parseBookmark(fields, now)
		if !urlcanon.IsValid(row.URL) {
			doc.Skipped++
			continue
		}
		doc.Bookmarks = append(doc.Bookmarks, row)
	}

	return doc, nil
}

func findMarker(records []record, marker string) int {
	return slices.IndexFunc(records, func(r record) bool {
		return strings.TrimSpace(r.raw) == marker
	})
}

// section returns the non-blank records after the marker at start and its
// header, up to the other marker when it follows, or the end of input.
func section(records []record, start, other int) []record {
	end := len(records)
	if other > start {
		end = other
	}
	from := min(start+2, end)

	out := make([]record, 0, end-from)
	for _, r := range records[from:end] {
		if !r.blank() {
			out = append(out, r)
		}
	}
	return out
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return StripInjectionPrefix(fields[i])
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseFolder(fields []string) FolderRow {
	f := domain.Folder{
		ColorName: field(fields, 3),
		IconName:  field(fields, 4),
	}.WithDefaults()

	return FolderRow{
		Name:       field(fields, 0),
		SortOrder:  atoi(field(fields, 1)),
		ParentPath: field(fields, 2),
		ColorName:  f.ColorName,
		IconName:   f.IconName,
	}
}

func parseBookmark(fields []string, now time.Time) BookmarkRow {
	created, err := time.Parse(dateLayout, strings.TrimSpace(field(fields, 3)))
	if err != nil {
		created = now
	}
	return BookmarkRow{
		URL:         strings.TrimSpace(field(fields, 0)),
		Name:        field(fields, 1),
		Description: field(fields, 2),
		CreatedAt:   created,
		IsFavorite:  strings.EqualFold(strings.TrimSpace(field(fields, 4)), "true"),
		SortOrder:   atoi(field(fields, 5)),
		FolderPath:  field(fields, 6),
	}
}

// Import reads at most MaxImportSize bytes from r and replaces the content
// of st with them.
func Import(ctx context.Context, r io.Reader, st store.Store) (ImportStats, error) {
	data, err := transfer.ReadLimited(r, MaxImportSize)
	if err != nil {
		return ImportStats{}, err
	}
	return ImportBytes(ctx, data, st)
}

// ImportBytes replaces every folder and bookmark in st with the content of
// data. The document is validated first; on any error st is left unchanged.
func ImportBytes(ctx context.Context, data []byte, st store.Store) (ImportStats, error) {
	if len(data) > MaxImportSize {
		return ImportStats{}, fmt.Errorf("%w: limit is %d bytes", transfer.ErrFileTooLarge, MaxImportSize)
	}

	doc, err := Parse(string(data), time.Now().UTC())
	if err != nil {
		return ImportStats{}, err
	}

	var stats ImportStats
	err = st.Update(ctx, func(tx store.Tx) error {
		stats = ImportStats{Skipped: doc.Skipped}
		return replace(tx, doc, &stats)
	})
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to commit csv import: %w", err)
	}
	return stats, nil
}

func replace(tx store.Tx, doc *Document, stats *ImportStats) error {
	tx.DeleteAllBookmarks()
	tx.DeleteAllFolders()

	folders := slices.Clone(doc.Folders)
	slices.SortStableFunc(folders, func(a, b FolderRow) int {
		return domain.PathDepth(a.ParentPath) - domain.PathDepth(b.ParentPath)
	})

	byPath := make(map[string]string, len(folders))
	for _, row := range folders {
		f := domain.Folder{
			Name:      row.Name,
			SortOrder: row.SortOrder,
			ColorName: row.ColorName,
			IconName:  row.IconName,
			ParentID:  byPath[row.ParentPath],
		}
		created, err := tx.InsertFolder(f)
		if err != nil {
			return fmt.Errorf("failed to create folder %q: %w", row.Path(), err)
		}
		byPath[row.Path()] = created.ID
		stats.Folders++
	}

	for _, row := range doc.Bookmarks {
		b := domain.Bookmark{
			URL:         row.URL,
			Name:        row.Name,
			Description: row.Description,
			CreatedAt:   row.CreatedAt,
			IsFavorite:  row.IsFavorite,
			SortOrder:   row.SortOrder,
			FolderID:    byPath[row.FolderPath],
			LinkStatus:  domain.LinkUnknown,
		}
		if _, err := tx.InsertBookmark(b); err != nil {
			return fmt.Errorf("failed to create bookmark %q: %w", row.URL, err)
		}
		stats.Bookmarks++
	}
	return nil
}
