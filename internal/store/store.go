// Package store defines the persistence contract shared by every backend.
//
// All writes go through Update, which runs a unit of work against a private
// snapshot and commits it atomically: either every mutation made by fn is
// persisted or none is.
package store

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// Reader exposes ordered read access to the persisted collections.
type Reader interface {
	// Folders are ordered by SortOrder, then name.
	Folders(ctx context.Context) ([]domain.Folder, error)
	// Bookmarks are ordered by CreatedAt, then ID.
	Bookmarks(ctx context.Context) ([]domain.Bookmark, error)
	// ReadingList is ordered by AddedAt, oldest first.
	ReadingList(ctx context.Context) ([]domain.ReadingListItem, error)
}

type Store interface {
	Reader

	// Update runs fn as one atomic unit of work. Calls are serialised.
	// When fn returns an error nothing is persisted. A backend may rerun fn
	// on a fresh snapshot after a conflict, so fn resets what it captures.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Tx is the view handed to an Update callback.
// Values returned by Tx are copies; mutate them and write them back.
type Tx interface {
	Folders() []domain.Folder
	Folder(id string) (domain.Folder, error)
	InsertFolder(f domain.Folder) (domain.Folder, error)
	UpdateFolder(f domain.Folder) error
	// DeleteFolder makes the folder's bookmarks uncategorized and its
	// children roots.
	DeleteFolder(id string) error
	DeleteAllFolders()

	Bookmarks() []domain.Bookmark
	Bookmark(id string) (domain.Bookmark, error)
	InsertBookmark(b domain.Bookmark) (domain.Bookmark, error)
	UpdateBookmark(b domain.Bookmark) error
	DeleteBookmark(id string) error
	DeleteAllBookmarks()

	ReadingList() []domain.ReadingListItem
	InsertReadingItem(it domain.ReadingListItem) (domain.ReadingListItem, error)
	UpdateReadingItem(it domain.ReadingListItem) error
	DeleteReadingItem(id string) error
}
