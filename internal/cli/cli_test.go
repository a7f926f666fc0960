package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stash/internal/transfer/csvfile"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// useSQLite points the store at a fresh database file for the test.
func useSQLite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STASH_STORE_BACKEND", "sqlite")
	t.Setenv("STASH_STORE_SQLITE_PATH", filepath.Join(dir, "stash.db"))
	t.Setenv("STASH_LOG_LEVEL", "error")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func csvSnapshot(url string) string {
	return "#FOLDERS\nname,sortOrder,parentPath,colorName,iconName\nWork,0,,blue,folder.fill\n\n" +
		"#BOOKMARKS\nurl,name,descriptionText,createdDate,isFavorite,sortOrder,folderPath\n" +
		url + ",Docs,,2025-01-01T00:00:00Z,false,0,Work\n"
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stash dev")
}

func TestImportExportCSV(t *testing.T) {
	dir := useSQLite(t)
	path := writeFile(t, dir, "in.csv", csvSnapshot("https://go.dev/doc"))

	out, err := run(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "bookmarks: 1")

	out, err = run(t, "export", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "#FOLDERS\n")
	assert.Contains(t, out, "https://go.dev/doc,Docs,")

	target := filepath.Join(dir, "out.html")
	_, err = run(t, "export", "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE NETSCAPE-Bookmark-file-1>", "format follows the output extension")
	assert.Contains(t, string(data), `<DT><H3>Work</H3>`)
}

func TestImportHTMLMerges(t *testing.T) {
	dir := useSQLite(t)
	path := writeFile(t, dir, "bookmarks.html", `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://rust-lang.org">Rust</A>
    <DT><A HREF="https://rust-lang.org/">Rust again</A>
</DL><p>
`)

	out, err := run(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "bookmarks added: 1")

	out, err = run(t, "import", "--format", "html", path)
	require.NoError(t, err)
	assert.Contains(t, out, "bookmarks added: 0")
}

func TestImportRejected(t *testing.T) {
	dir := useSQLite(t)

	_, err := run(t, "import", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)

	path := writeFile(t, dir, "bad.csv", "url,name\nhttps://example.com,x\n")
	_, err = run(t, "import", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, csvfile.ErrMissingSection)

	_, err = run(t, "import", "--format", "xml", path)
	require.Error(t, err)
}

func TestCheckLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := useSQLite(t)
	path := writeFile(t, dir, "in.csv", csvSnapshot(srv.URL+"/page"))
	_, err := run(t, "import", path)
	require.NoError(t, err)

	out, err := run(t, "check-links")
	require.NoError(t, err)
	assert.Contains(t, out, "valid: 1\ndead: 0\n")
}

func TestBadConfig(t *testing.T) {
	t.Setenv("STASH_STORE_BACKEND", "mongo")
	_, err := run(t, "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}
