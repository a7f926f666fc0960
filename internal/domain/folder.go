package domain

import (
	"cmp"
	"errors"
	"slices"
	"strings"
)

const (
	DefaultFolderColor = "blue"
	DefaultFolderIcon  = "folder.fill"
)

// ErrFolderCycle is returned when a parent assignment would make a folder
// its own ancestor.
var ErrFolderCycle = errors.New("folder cycle")

// Folder groups bookmarks and other folders.
// Children and contained bookmarks are derived by query, never stored.
type Folder struct {
	ID        string
	Name      string
	SortOrder int
	ColorName string
	IconName  string

	// ParentID is empty for root folders.
	ParentID string
}

// WithDefaults fills blank presentation attributes.
func (f Folder) WithDefaults() Folder {
	if strings.TrimSpace(f.ColorName) == "" {
		f.ColorName = DefaultFolderColor
	}
	if strings.TrimSpace(f.IconName) == "" {
		f.IconName = DefaultFolderIcon
	}
	return f
}

// CheckAncestry verifies that giving folder id the parent parentID keeps the
// tree acyclic. The walk is bounded by the number of known folders so a
// corrupted chain cannot loop forever.
func CheckAncestry(folders map[string]Folder, id, parentID string) error {
	if parentID == "" {
		return nil
	}
	if parentID == id {
		return ErrFolderCycle
	}
	cur := parentID
	for steps := 0; cur != ""; steps++ {
		if steps > len(folders) {
			return ErrFolderCycle
		}
		if cur == id {
			return ErrFolderCycle
		}
		f, ok := folders[cur]
		if !ok {
			return nil
		}
		cur = f.ParentID
	}
	return nil
}

// BySortOrder orders folders by SortOrder, then by name.
func BySortOrder(a, b Folder) int {
	if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

// ByName orders folders by name.
func ByName(a, b Folder) int {
	return strings.Compare(a.Name, b.Name)
}

// FolderTree indexes a flat folder list for parent/child navigation.
// Folders whose parent is unknown are treated as roots.
type FolderTree struct {
	byID     map[string]Folder
	children map[string][]Folder
}

func NewFolderTree(folders []Folder) *FolderTree {
	t := &FolderTree{
		byID:     make(map[string]Folder, len(folders)),
		children: make(map[string][]Folder),
	}
	for _, f := range folders {
		t.byID[f.ID] = f
	}
	for _, f := range folders {
		parent := f.ParentID
		if _, ok := t.byID[parent]; !ok {
			parent = ""
		}
		t.children[parent] = append(t.children[parent], f)
	}
	return t
}

func (t *FolderTree) Get(id string) (Folder, bool) {
	f, ok := t.byID[id]
	return f, ok
}

// Children returns the direct children of parentID ("" for roots) ordered by less.
func (t *FolderTree) Children(parentID string, less func(a, b Folder) int) []Folder {
	out := slices.Clone(t.children[parentID])
	slices.SortStableFunc(out, less)
	return out
}

// PreOrder lists every folder depth-first, siblings ordered by less.
func (t *FolderTree) PreOrder(less func(a, b Folder) int) []Folder {
	out := make([]Folder, 0, len(t.byID))
	seen := make(map[string]bool, len(t.byID))
	var walk func(parent string)
	walk = func(parent string) {
		for _, f := range t.Children(parent, less) {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			out = append(out, f)
			walk(f.ID)
		}
	}
	walk("")
	return out
}

// FullPath returns the slash-joined names from the root down to id.
func (t *FolderTree) FullPath(id string) string {
	var names []string
	cur := id
	for steps := 0; cur != "" && steps <= len(t.byID); steps++ {
		f, ok := t.byID[cur]
		if !ok {
			break
		}
		names = append(names, f.Name)
		cur = f.ParentID
	}
	slices.Reverse(names)
	return strings.Join(names, "/")
}

// ParentPath returns the FullPath of id's parent, or "" for roots.
func (t *FolderTree) ParentPath(id string) string {
	f, ok := t.byID[id]
	if !ok || f.ParentID == "" {
		return ""
	}
	return t.FullPath(f.ParentID)
}

// PathDepth counts the components of a slash-joined folder path.
func PathDepth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}
