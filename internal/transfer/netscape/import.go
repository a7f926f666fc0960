package netscape

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
	"github.com/MrSnakeDoc/stash/internal/transfer"
	"github.com/MrSnakeDoc/stash/internal/urlcanon"
)

// MaxImportSize caps the size of an import payload.
const MaxImportSize = 10 << 20

// ImportStats summarises a merge.
type ImportStats struct {
	FoldersCreated int `json:"folders_created"`
	BookmarksAdded int `json:"bookmarks_added"`
	Skipped        int `json:"skipped"`
}

// ImportReader reads at most MaxImportSize bytes from r and merges them into st.
func ImportReader(ctx context.Context, r io.Reader, st store.Store) (ImportStats, error) {
	data, err := transfer.ReadLimited(r, MaxImportSize)
	if err != nil {
		return ImportStats{}, err
	}
	return Import(ctx, string(data), st)
}

// Import merges a bookmark file into st. Nothing already stored is removed:
// folders are reused by case-insensitive name under the same parent, and
// anchors whose canonical URL is already known are skipped.
func Import(ctx context.Context, doc string, st store.Store) (ImportStats, error) {
	tokens := Scan(doc)
	start := time.Now().UTC()

	var stats ImportStats
	err := st.Update(ctx, func(tx store.Tx) error {
		m := newMerger(tx, start)
		for _, tok := range tokens {
			if err := m.apply(tok); err != nil {
				return err
			}
		}
		stats = m.stats
		return nil
	})
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to commit html import: %w", err)
	}
	return stats, nil
}

// merger folds the token stream into the store.
type merger struct {
	tx    store.Tx
	start time.Time
	stats ImportStats

	seen    map[string]struct{}
	folders []domain.Folder

	// stack holds folder ids; "" is the uncategorized level.
	stack   []string
	pending *string
	last    *domain.Bookmark
}

func newMerger(tx store.Tx, start time.Time) *merger {
	m := &merger{
		tx:      tx,
		start:   start,
		seen:    make(map[string]struct{}),
		folders: tx.Folders(),
	}
	for _, b := range tx.Bookmarks() {
		m.seen[urlcanon.Canonicalize(b.URL)] = struct{}{}
	}
	return m
}

func (m *merger) top() string {
	if len(m.stack) == 0 {
		return ""
	}
	return m.stack[len(m.stack)-1]
}

func (m *merger) apply(tok Token) error {
	switch tok.Kind {
	case OpenList:
		m.last = nil
		if m.pending == nil {
			m.stack = append(m.stack, m.top())
			return nil
		}
		name := *m.pending
		m.pending = nil
		f, err := m.findOrCreate(name, m.top())
		if err != nil {
			return err
		}
		m.stack = append(m.stack, f.ID)

	case CloseList:
		m.last = nil
		if len(m.stack) > 0 {
			m.stack = m.stack[:len(m.stack)-1]
		}

	case FolderHeading:
		m.last = nil
		name := tok.Text
		m.pending = &name

	case Anchor:
		return m.addBookmark(tok)

	case Description:
		if m.last == nil {
			return nil
		}
		b := *m.last
		m.last = nil
		b.Description = tok.Text
		if err := m.tx.UpdateBookmark(b); err != nil {
			return fmt.Errorf("failed to set description: %w", err)
		}
	}
	return nil
}

func (m *merger) findOrCreate(name, parentID string) (domain.Folder, error) {
	for _, f := range m.folders {
		if f.ParentID == parentID && strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	f, err := m.tx.InsertFolder(domain.Folder{Name: name, ParentID: parentID})
	if err != nil {
		return domain.Folder{}, fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	m.folders = append(m.folders, f)
	m.stats.FoldersCreated++
	return f, nil
}

func (m *merger) addBookmark(tok Token) error {
	m.last = nil
	if !urlcanon.IsValid(tok.Href) {
		m.stats.Skipped++
		return nil
	}
	canonical := urlcanon.Canonicalize(tok.Href)
	if _, dup := m.seen[canonical]; dup {
		m.stats.Skipped++
		return nil
	}
	m.seen[canonical] = struct{}{}

	created := m.start.Add(time.Duration(m.stats.BookmarksAdded) * time.Millisecond)
	if tok.AddDate != nil {
		created = *tok.AddDate
	}
	name := tok.Text
	if name == "" {
		name = canonical
	}

	b, err := m.tx.InsertBookmark(domain.Bookmark{
		URL:        canonical,
		Name:       name,
		CreatedAt:  created,
		FolderID:   m.top(),
		LinkStatus: domain.LinkUnknown,
	})
	if err != nil {
		return fmt.Errorf("failed to add bookmark %q: %w", canonical, err)
	}
	m.last = &b
	m.stats.BookmarksAdded++
	return nil
}
