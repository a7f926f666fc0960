// Package sqlite persists the collections with gorm on top of SQLite.
// Update runs inside a single SQL transaction.
package sqlite

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
)

type Store struct {
	db      *gorm.DB
	writeMu sync.Mutex
}

// Open connects to the database file at dsn (":memory:" for a private
// in-memory database) and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// One connection keeps ":memory:" databases shared and writes serialised.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return New(db)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Folders(ctx context.Context) ([]domain.Folder, error) {
	var rows []folderRow
	if err := s.db.WithContext(ctx).Order("sort_order, name, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	out := make([]domain.Folder, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) Bookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	var rows []bookmarkRow
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	out := make([]domain.Bookmark, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) ReadingList(ctx context.Context) ([]domain.ReadingListItem, error) {
	var rows []readingItemRow
	if err := s.db.WithContext(ctx).Order("added_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list reading list: %w", err)
	}
	out := make([]domain.ReadingListItem, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		snap, err := loadSnapshot(gtx)
		if err != nil {
			return err
		}

		tx := store.NewSnapshotTx(snap)
		if err := fn(tx); err != nil {
			return err
		}

		if err := apply(gtx, tx.Snapshot(), tx.Changes()); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

func loadSnapshot(db *gorm.DB) (*store.Snapshot, error) {
	snap := store.NewSnapshot()

	var folders []folderRow
	if err := db.Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("failed to load folders: %w", err)
	}
	for _, r := range folders {
		snap.Folders[r.ID] = r.toDomain()
	}

	var bookmarks []bookmarkRow
	if err := db.Find(&bookmarks).Error; err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}
	for _, r := range bookmarks {
		snap.Bookmarks[r.ID] = r.toDomain()
	}

	var items []readingItemRow
	if err := db.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load reading list: %w", err)
	}
	for _, r := range items {
		snap.ReadingList[r.ID] = r.toDomain()
	}
	return snap, nil
}

// SQLite caps the bound variables of one statement, so writes go out in
// chunks. A bookmark row binds 11 columns.
const (
	upsertBatch = 500
	deleteBatch = 500
)

func apply(db *gorm.DB, snap *store.Snapshot, c store.Changes) error {
	if err := deleteIDs(db, &folderRow{}, c.DeleteFolders); err != nil {
		return err
	}
	if err := upsertRows(db, c.UpsertFolders, func(id string) folderRow {
		return toFolderRow(snap.Folders[id])
	}); err != nil {
		return err
	}

	if err := deleteIDs(db, &bookmarkRow{}, c.DeleteBookmarks); err != nil {
		return err
	}
	if err := upsertRows(db, c.UpsertBookmarks, func(id string) bookmarkRow {
		return toBookmarkRow(snap.Bookmarks[id])
	}); err != nil {
		return err
	}

	if err := deleteIDs(db, &readingItemRow{}, c.DeleteReadingList); err != nil {
		return err
	}
	return upsertRows(db, c.UpsertReadingList, func(id string) readingItemRow {
		return toReadingItemRow(snap.ReadingList[id])
	})
}

func deleteIDs(db *gorm.DB, model any, ids []string) error {
	for chunk := range slices.Chunk(ids, deleteBatch) {
		if err := db.Delete(model, "id IN ?", chunk).Error; err != nil {
			return err
		}
	}
	return nil
}

func upsertRows[R any](db *gorm.DB, ids []string, row func(id string) R) error {
	if len(ids) == 0 {
		return nil
	}
	rows := make([]R, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, row(id))
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&rows, upsertBatch).Error
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
