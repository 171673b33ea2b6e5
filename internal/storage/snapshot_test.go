package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotStore_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Write("90210-ca-jane-roe-55", 1, "<html>jane one</html>"))
	require.NoError(t, store.Write("28204-nc-michael-demayo-1742166", 2, "<html>page two</html>"))
	require.NoError(t, store.Write("28204-nc-michael-demayo-1742166", 1, "<html>page one</html>"))

	// Files that don't follow the snapshot naming scheme are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch"), 0o644))

	ids, err := store.TargetIDs()
	require.NoError(t, err)
	require.Equal(t, []string{"28204-nc-michael-demayo-1742166", "90210-ca-jane-roe-55"}, ids)

	pages, err := store.Pages("28204-nc-michael-demayo-1742166")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	require.Equal(t, 1, pages[0].Index)
	require.Equal(t, "<html>page one</html>", pages[0].HTML)
	require.Equal(t, 2, pages[1].Index)

	pages, err = store.Pages("no-such-target")
	require.NoError(t, err)
	require.Empty(t, pages)
}

func TestSnapshotStore_DecodesForeignEncoding(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir)
	require.NoError(t, err)

	// ISO-8859-1 "café", as captured by tooling that didn't transcode.
	raw := []byte(`<html><head><meta charset="iso-8859-1"></head><body>caf` + "\xe9" + `</body></html>`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x_page-1.html"), raw, 0o644))

	pages, err := store.Pages("x")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Contains(t, pages[0].HTML, "café")
}
