package store

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// Snapshot is a full in-memory copy of the persisted collections.
type Snapshot struct {
	Folders     map[string]domain.Folder
	Bookmarks   map[string]domain.Bookmark
	ReadingList map[string]domain.ReadingListItem
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Folders:     make(map[string]domain.Folder),
		Bookmarks:   make(map[string]domain.Bookmark),
		ReadingList: make(map[string]domain.ReadingListItem),
	}
}

// Clone copies the maps. Records are values whose byte slices are never
// mutated in place, so they are shared.
func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{
		Folders:     maps.Clone(s.Folders),
		Bookmarks:   maps.Clone(s.Bookmarks),
		ReadingList: maps.Clone(s.ReadingList),
	}
}

func (s *Snapshot) SortedFolders() []domain.Folder {
	out := slices.Collect(maps.Values(s.Folders))
	SortFolders(out)
	return out
}

func (s *Snapshot) SortedBookmarks() []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(s.Bookmarks))
	for _, b := range s.Bookmarks {
		out = append(out, b.Clone())
	}
	SortBookmarks(out)
	return out
}

func (s *Snapshot) SortedReadingList() []domain.ReadingListItem {
	out := make([]domain.ReadingListItem, 0, len(s.ReadingList))
	for _, it := range s.ReadingList {
		out = append(out, it.Clone())
	}
	SortReadingList(out)
	return out
}

func SortFolders(fs []domain.Folder) {
	slices.SortFunc(fs, func(a, b domain.Folder) int {
		if c := domain.BySortOrder(a, b); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func SortBookmarks(bs []domain.Bookmark) {
	slices.SortFunc(bs, func(a, b domain.Bookmark) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func SortReadingList(items []domain.ReadingListItem) {
	slices.SortFunc(items, func(a, b domain.ReadingListItem) int {
		if c := a.AddedAt.Compare(b.AddedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Changes lists the record ids a transaction touched, split into
// upserts and deletions against the final snapshot.
type Changes struct {
	UpsertFolders     []string
	DeleteFolders     []string
	UpsertBookmarks   []string
	DeleteBookmarks   []string
	UpsertReadingList []string
	DeleteReadingList []string
}

func (c Changes) Empty() bool {
	return len(c.UpsertFolders)+len(c.DeleteFolders)+
		len(c.UpsertBookmarks)+len(c.DeleteBookmarks)+
		len(c.UpsertReadingList)+len(c.DeleteReadingList) == 0
}

// SnapshotTx implements Tx over a private snapshot and records which ids
// were touched so backends can persist only the difference.
type SnapshotTx struct {
	snap *Snapshot

	folders  map[string]struct{}
	bookmark map[string]struct{}
	reading  map[string]struct{}
}

// NewSnapshotTx takes ownership of snap; pass a clone.
func NewSnapshotTx(snap *Snapshot) *SnapshotTx {
	return &SnapshotTx{
		snap:     snap,
		folders:  make(map[string]struct{}),
		bookmark: make(map[string]struct{}),
		reading:  make(map[string]struct{}),
	}
}

// Snapshot returns the state after the mutations applied so far.
func (tx *SnapshotTx) Snapshot() *Snapshot { return tx.snap }

// Changes splits every touched id into upserts and deletions.
func (tx *SnapshotTx) Changes() Changes {
	var c Changes
	c.UpsertFolders, c.DeleteFolders = split(tx.folders, tx.snap.Folders)
	c.UpsertBookmarks, c.DeleteBookmarks = split(tx.bookmark, tx.snap.Bookmarks)
	c.UpsertReadingList, c.DeleteReadingList = split(tx.reading, tx.snap.ReadingList)
	return c
}

func split[V any](touched map[string]struct{}, current map[string]V) (upsert, del []string) {
	for id := range touched {
		if _, ok := current[id]; ok {
			upsert = append(upsert, id)
		} else {
			del = append(del, id)
		}
	}
	slices.Sort(upsert)
	slices.Sort(del)
	return upsert, del
}

func (tx *SnapshotTx) Folders() []domain.Folder { return tx.snap.SortedFolders() }

func (tx *SnapshotTx) Folder(id string) (domain.Folder, error) {
	f, ok := tx.snap.Folders[id]
	if !ok {
		return domain.Folder{}, fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	return f, nil
}

func (tx *SnapshotTx) InsertFolder(f domain.Folder) (domain.Folder, error) {
	if f.ID == "" {
		f.ID = domain.NewID()
	}
	if _, exists := tx.snap.Folders[f.ID]; exists {
		return domain.Folder{}, fmt.Errorf("folder %s already exists", f.ID)
	}
	if err := tx.checkParent(f); err != nil {
		return domain.Folder{}, err
	}
	f = f.WithDefaults()
	tx.snap.Folders[f.ID] = f
	tx.folders[f.ID] = struct{}{}
	return f, nil
}

func (tx *SnapshotTx) UpdateFolder(f domain.Folder) error {
	if _, ok := tx.snap.Folders[f.ID]; !ok {
		return fmt.Errorf("folder %s: %w", f.ID, ErrNotFound)
	}
	if err := tx.checkParent(f); err != nil {
		return err
	}
	tx.snap.Folders[f.ID] = f.WithDefaults()
	tx.folders[f.ID] = struct{}{}
	return nil
}

func (tx *SnapshotTx) checkParent(f domain.Folder) error {
	if f.ParentID == "" {
		return nil
	}
	if _, ok := tx.snap.Folders[f.ParentID]; !ok {
		return fmt.Errorf("parent folder %s: %w", f.ParentID, ErrNotFound)
	}
	if err := domain.CheckAncestry(tx.snap.Folders, f.ID, f.ParentID); err != nil {
		return fmt.Errorf("failed to move folder %q: %w", f.Name, err)
	}
	return nil
}

func (tx *SnapshotTx) DeleteFolder(id string) error {
	if _, ok := tx.snap.Folders[id]; !ok {
		return fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	delete(tx.snap.Folders, id)
	tx.folders[id] = struct{}{}

	for cid, child := range tx.snap.Folders {
		if child.ParentID == id {
			child.ParentID = ""
			tx.snap.Folders[cid] = child
			tx.folders[cid] = struct{}{}
		}
	}
	for bid, b := range tx.snap.Bookmarks {
		if b.FolderID == id {
			b.FolderID = ""
			tx.snap.Bookmarks[bid] = b
			tx.bookmark[bid] = struct{}{}
		}
	}
	return nil
}

func (tx *SnapshotTx) DeleteAllFolders() {
	for id := range tx.snap.Folders {
		tx.folders[id] = struct{}{}
	}
	clear(tx.snap.Folders)
	for bid, b := range tx.snap.Bookmarks {
		if b.FolderID != "" {
			b.FolderID = ""
			tx.snap.Bookmarks[bid] = b
			tx.bookmark[bid] = struct{}{}
		}
	}
}

func (tx *SnapshotTx) Bookmarks() []domain.Bookmark { return tx.snap.SortedBookmarks() }

func (tx *SnapshotTx) Bookmark(id string) (domain.Bookmark, error) {
	b, ok := tx.snap.Bookmarks[id]
	if !ok {
		return domain.Bookmark{}, fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
	}
	return b.Clone(), nil
}

func (tx *SnapshotTx) InsertBookmark(b domain.Bookmark) (domain.Bookmark, error) {
	if b.ID == "" {
		b.ID = domain.NewID()
	}
	if _, exists := tx.snap.Bookmarks[b.ID]; exists {
		return domain.Bookmark{}, fmt.Errorf("bookmark %s already exists", b.ID)
	}
	if err := tx.putBookmark(b); err != nil {
		return domain.Bookmark{}, err
	}
	return tx.snap.Bookmarks[b.ID].Clone(), nil
}

func (tx *SnapshotTx) UpdateBookmark(b domain.Bookmark) error {
	if _, ok := tx.snap.Bookmarks[b.ID]; !ok {
		return fmt.Errorf("bookmark %s: %w", b.ID, ErrNotFound)
	}
	return tx.putBookmark(b)
}

func (tx *SnapshotTx) putBookmark(b domain.Bookmark) error {
	if b.FolderID != "" {
		if _, ok := tx.snap.Folders[b.FolderID]; !ok {
			return fmt.Errorf("folder %s: %w", b.FolderID, ErrNotFound)
		}
	}
	if b.LinkStatus == "" {
		b.LinkStatus = domain.LinkUnknown
	}
	tx.snap.Bookmarks[b.ID] = b.Clone()
	tx.bookmark[b.ID] = struct{}{}
	return nil
}

func (tx *SnapshotTx) DeleteBookmark(id string) error {
	if _, ok := tx.snap.Bookmarks[id]; !ok {
		return fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
	}
	delete(tx.snap.Bookmarks, id)
	tx.bookmark[id] = struct{}{}
	return nil
}

func (tx *SnapshotTx) DeleteAllBookmarks() {
	for id := range tx.snap.Bookmarks {
		tx.bookmark[id] = struct{}{}
	}
	clear(tx.snap.Bookmarks)
}

func (tx *SnapshotTx) ReadingList() []domain.ReadingListItem { return tx.snap.SortedReadingList() }

func (tx *SnapshotTx) InsertReadingItem(it domain.ReadingListItem) (domain.ReadingListItem, error) {
	if it.ID == "" {
		it.ID = domain.NewID()
	}
	if _, exists := tx.snap.ReadingList[it.ID]; exists {
		return domain.ReadingListItem{}, fmt.Errorf("reading list item %s already exists", it.ID)
	}
	tx.snap.ReadingList[it.ID] = it.Clone()
	tx.reading[it.ID] = struct{}{}
	return it.Clone(), nil
}

func (tx *SnapshotTx) UpdateReadingItem(it domain.ReadingListItem) error {
	if _, ok := tx.snap.ReadingList[it.ID]; !ok {
		return fmt.Errorf("reading list item %s: %w", it.ID, ErrNotFound)
	}
	tx.snap.ReadingList[it.ID] = it.Clone()
	tx.reading[it.ID] = struct{}{}
	return nil
}

func (tx *SnapshotTx) DeleteReadingItem(id string) error {
	if _, ok := tx.snap.ReadingList[id]; !ok {
		return fmt.Errorf("reading list item %s: %w", id, ErrNotFound)
	}
	delete(tx.snap.ReadingList, id)
	tx.reading[id] = struct{}{}
	return nil
}
