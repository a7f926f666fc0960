package domain

import (
	"errors"
	"testing"
)

func sampleFolders() []Folder {
	return []Folder{
		{ID: "dev", Name: "Dev", SortOrder: 1},
		{ID: "news", Name: "News", SortOrder: 0},
		{ID: "go", Name: "Go", SortOrder: 2, ParentID: "dev"},
		{ID: "rust", Name: "Rust", SortOrder: 1, ParentID: "dev"},
		{ID: "std", Name: "Std", ParentID: "go"},
	}
}

func TestFolderTreePaths(t *testing.T) {
	tree := NewFolderTree(sampleFolders())

	tests := []struct {
		id         string
		fullPath   string
		parentPath string
	}{
		{id: "dev", fullPath: "Dev", parentPath: ""},
		{id: "go", fullPath: "Dev/Go", parentPath: "Dev"},
		{id: "std", fullPath: "Dev/Go/Std", parentPath: "Dev/Go"},
		{id: "missing", fullPath: "", parentPath: ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := tree.FullPath(tt.id); got != tt.fullPath {
				t.Errorf("FullPath(%q) = %q, want %q", tt.id, got, tt.fullPath)
			}
			if got := tree.ParentPath(tt.id); got != tt.parentPath {
				t.Errorf("ParentPath(%q) = %q, want %q", tt.id, got, tt.parentPath)
			}
		})
	}
}

func TestFolderTreePreOrder(t *testing.T) {
	tree := NewFolderTree(sampleFolders())

	got := tree.PreOrder(BySortOrder)
	want := []string{"news", "dev", "rust", "go", "std"}
	if len(got) != len(want) {
		t.Fatalf("PreOrder() returned %d folders, want %d", len(got), len(want))
	}
	for i, f := range got {
		if f.ID != want[i] {
			t.Errorf("PreOrder()[%d] = %q, want %q", i, f.ID, want[i])
		}
	}
}

func TestFolderTreeOrphanIsRoot(t *testing.T) {
	tree := NewFolderTree([]Folder{{ID: "a", Name: "A", ParentID: "gone"}})

	roots := tree.Children("", ByName)
	if len(roots) != 1 || roots[0].ID != "a" {
		t.Errorf("Children(\"\") = %v, want the orphan as root", roots)
	}
}

func TestCheckAncestry(t *testing.T) {
	folders := make(map[string]Folder)
	for _, f := range sampleFolders() {
		folders[f.ID] = f
	}

	tests := []struct {
		name     string
		id       string
		parentID string
		wantErr  bool
	}{
		{name: "to root", id: "go", parentID: "", wantErr: false},
		{name: "to sibling", id: "go", parentID: "rust", wantErr: false},
		{name: "to itself", id: "go", parentID: "go", wantErr: true},
		{name: "to own child", id: "dev", parentID: "go", wantErr: true},
		{name: "to grandchild", id: "dev", parentID: "std", wantErr: true},
		{name: "to unknown", id: "dev", parentID: "nope", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAncestry(folders, tt.id, tt.parentID)
			if tt.wantErr && !errors.Is(err, ErrFolderCycle) {
				t.Errorf("CheckAncestry() = %v, want ErrFolderCycle", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckAncestry() = %v, want nil", err)
			}
		})
	}
}

func TestCheckAncestryCorruptedChain(t *testing.T) {
	folders := map[string]Folder{
		"a": {ID: "a", ParentID: "b"},
		"b": {ID: "b", ParentID: "a"},
	}
	if err := CheckAncestry(folders, "c", "a"); !errors.Is(err, ErrFolderCycle) {
		t.Errorf("CheckAncestry() on a looping chain = %v, want ErrFolderCycle", err)
	}
}

func TestWithDefaults(t *testing.T) {
	f := Folder{Name: "x", ColorName: " "}.WithDefaults()
	if f.ColorName != DefaultFolderColor || f.IconName != DefaultFolderIcon {
		t.Errorf("WithDefaults() = %+v", f)
	}
	f = Folder{ColorName: "red", IconName: "star"}.WithDefaults()
	if f.ColorName != "red" || f.IconName != "star" {
		t.Errorf("WithDefaults() overwrote explicit values: %+v", f)
	}
}

func TestPathDepth(t *testing.T) {
	for path, want := range map[string]int{"": 0, "A": 1, "A/B": 2, "A/B/C": 3} {
		if got := PathDepth(path); got != want {
			t.Errorf("PathDepth(%q) = %d, want %d", path, got, want)
		}
	}
}
