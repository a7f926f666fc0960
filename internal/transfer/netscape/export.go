// Package netscape reads and writes the Netscape Bookmark File Format used by
// browsers for bookmark import and export.
package netscape

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store"
)

var header = []string{
	"<!DOCTYPE NETSCAPE-Bookmark-file-1>",
	"<!-- This is an automatically generated file.",
	"     It will be read and overwritten.",
	"     DO NOT EDIT! -->",
	`<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">`,
	"<TITLE>Bookmarks</TITLE>",
	"<H1>Bookmarks</H1>",
	"<DL><p>",
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Export renders the folder tree with uncategorized bookmarks first, then
// root folders by name. Inside a folder, subfolders come before bookmarks,
// which are ordered by creation time.
func Export(folders []domain.Folder, bookmarks []domain.Bookmark) string {
	tree := domain.NewFolderTree(folders)

	byFolder := make(map[string][]domain.Bookmark)
	var loose []domain.Bookmark
	for _, b := range bookmarks {
		if _, ok := tree.Get(b.FolderID); b.FolderID == "" || !ok {
			loose = append(loose, b)
			continue
		}
		byFolder[b.FolderID] = append(byFolder[b.FolderID], b)
	}

	lines := slices.Clone(header)
	for _, b := range loose {
		lines = appendBookmark(lines, b, 1)
	}

	var block func(f domain.Folder, indent int)
	block = func(f domain.Folder, indent int) {
		pad := strings.Repeat("    ", indent)
		lines = append(lines,
			pad+"<DT><H3>"+escaper.Replace(f.Name)+"</H3>",
			pad+"<DL><p>",
		)
		for _, child := range tree.Children(f.ID, domain.ByName) {
			block(child, indent+1)
		}
		inside := byFolder[f.ID]
		slices.SortStableFunc(inside, func(a, b domain.Bookmark) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		for _, b := range inside {
			lines = appendBookmark(lines, b, indent+1)
		}
		lines = append(lines, pad+"</DL><p>")
	}
	for _, f := range tree.Children("", domain.ByName) {
		block(f, 1)
	}

	lines = append(lines, "</DL><p>")
	return strings.Join(lines, "\n")
}

func appendBookmark(lines []string, b domain.Bookmark, indent int) []string {
	pad := strings.Repeat("    ", indent)
	lines = append(lines, fmt.Sprintf(`%s<DT><A HREF="%s" ADD_DATE="%s">%s</A>`,
		pad,
		escaper.Replace(b.URL),
		strconv.FormatInt(b.CreatedAt.Unix(), 10),
		escaper.Replace(b.Name),
	))
	if b.Description != "" {
		lines = append(lines, pad+"<DD>"+escaper.Replace(b.Description))
	}
	return lines
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
