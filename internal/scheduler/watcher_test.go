package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stash/internal/logger"
)

func TestFileWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookmarks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	fw, err := NewFileWatcher(path, 50*time.Millisecond, logger.NewNop())
	require.NoError(t, err)
	defer func() { _ = fw.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	select {
	case <-fw.Changes():
		t.Fatal("unrelated file must not notify")
	case <-time.After(150 * time.Millisecond):
	}

	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}

	select {
	case <-fw.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	select {
	case <-fw.Changes():
		t.Fatal("burst should produce a single notification")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewFileWatcherMissingDirectory(t *testing.T) {
	_, err := NewFileWatcher(filepath.Join(t.TempDir(), "nope", "bookmarks.yaml"), 0, logger.NewNop())
	require.Error(t, err)
}
