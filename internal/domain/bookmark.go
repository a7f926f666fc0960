package domain

import "time"

// Bookmark represents a saved link.
// Bookmarks live either inside a Folder or uncategorized (empty FolderID).
type Bookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is assigned by the store on insert.
	ID string

	// URL is the target address. Two bookmarks are the same entry
	// when their canonical URLs are equal.
	URL string

	// ─────────────────────────────
	// User data
	// ─────────────────────────────

	Name        string
	Description string
	CreatedAt   time.Time
	IsFavorite  bool
	SortOrder   int

	// FolderID is empty for uncategorized bookmarks.
	FolderID string

	// ─────────────────────────────
	// Maintenance state
	// ─────────────────────────────

	// FaviconData holds a PNG image, nil when no icon is known.
	FaviconData []byte

	LinkStatus LinkStatus

	// LastCheckedAt is nil until the first link check.
	LastCheckedAt *time.Time
}

// HasFavicon reports whether an icon has been stored for the bookmark.
func (b Bookmark) HasFavicon() bool {
	return len(b.FaviconData) > 0
}

// Clone returns a copy that shares no mutable memory with b.
func (b Bookmark) Clone() Bookmark {
	c := b
	if b.FaviconData != nil {
		c.FaviconData = append([]byte(nil), b.FaviconData...)
	}
	if b.LastCheckedAt != nil {
		t := *b.LastCheckedAt
		c.LastCheckedAt = &t
	}
	return c
}
