package sqlite

import (
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

type folderRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	SortOrder int    `gorm:"not null"`
	ColorName string
	IconName  string
	ParentID  string `gorm:"index"`
}

func (folderRow) TableName() string { return "folders" }

type bookmarkRow struct {
	ID            string `gorm:"primaryKey"`
	URL           string `gorm:"not null"`
	Name          string
	Description   string
	Created       time.Time `gorm:"column:created_at;index"`
	IsFavorite    bool
	SortOrder     int
	FaviconData   []byte
	LinkStatus    string
	LastCheckedAt *time.Time
	FolderID      string `gorm:"index"`
}

func (bookmarkRow) TableName() string { return "bookmarks" }

type readingItemRow struct {
	ID          string `gorm:"primaryKey"`
	URL         string `gorm:"not null"`
	Name        string
	FaviconData []byte
	Added       time.Time `gorm:"column:added_at;index"`
}

func (readingItemRow) TableName() string { return "reading_list" }

func allModels() []any {
	return []any{&folderRow{}, &bookmarkRow{}, &readingItemRow{}}
}

func toFolderRow(f domain.Folder) folderRow {
	return folderRow{
		ID:        f.ID,
		Name:      f.Name,
		SortOrder: f.SortOrder,
		ColorName: f.ColorName,
		IconName:  f.IconName,
		ParentID:  f.ParentID,
	}
}

func (r folderRow) toDomain() domain.Folder {
	return domain.Folder{
		ID:        r.ID,
		Name:      r.Name,
		SortOrder: r.SortOrder,
		ColorName: r.ColorName,
		IconName:  r.IconName,
		ParentID:  r.ParentID,
	}
}

func toBookmarkRow(b domain.Bookmark) bookmarkRow {
	return bookmarkRow{
		ID:            b.ID,
		URL:           b.URL,
		Name:          b.Name,
		Description:   b.Description,
		Created:       b.CreatedAt.UTC(),
		IsFavorite:    b.IsFavorite,
		SortOrder:     b.SortOrder,
		FaviconData:   b.FaviconData,
		LinkStatus:    string(b.LinkStatus),
		LastCheckedAt: b.LastCheckedAt,
		FolderID:      b.FolderID,
	}
}

func (r bookmarkRow) toDomain() domain.Bookmark {
	return domain.Bookmark{
		ID:            r.ID,
		URL:           r.URL,
		Name:          r.Name,
		Description:   r.Description,
		CreatedAt:     r.Created,
		IsFavorite:    r.IsFavorite,
		SortOrder:     r.SortOrder,
		FaviconData:   r.FaviconData,
		LinkStatus:    domain.ParseLinkStatus(r.LinkStatus),
		LastCheckedAt: r.LastCheckedAt,
		FolderID:      r.FolderID,
	}
}

func toReadingItemRow(it domain.ReadingListItem) readingItemRow {
	return readingItemRow{
		ID:          it.ID,
		URL:         it.URL,
		Name:        it.Name,
		FaviconData: it.FaviconData,
		Added:       it.AddedAt.UTC(),
	}
}

func (r readingItemRow) toDomain() domain.ReadingListItem {
	return domain.ReadingListItem{
		ID:          r.ID,
		URL:         r.URL,
		Name:        r.Name,
		FaviconData: r.FaviconData,
		AddedAt:     r.Added,
	}
}
