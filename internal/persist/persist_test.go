package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteSnapshotThenLoadDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")

	require.NoError(t, WriteSnapshot(path, []byte("# Title\nhello\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "# Title\nhello\n", string(data))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	require.Equal(t, "# Title\nhello\n", string(doc.Snapshot()))
	require.Equal(t, 2, doc.NumChunks())
}

func TestLoadDocumentMissingFileIsEmptyDocument(t *testing.T) {
	dir := t.TempDir()

	doc, err := LoadDocument(filepath.Join(dir, "doc.md"))
	require.NoError(t, err)
	require.Equal(t, 0, doc.NumChunks())
	require.Equal(t, []byte(nil), doc.Snapshot())
}

func TestWriteSnapshotOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")

	require.NoError(t, WriteSnapshot(path, []byte("first\n")))
	require.NoError(t, WriteSnapshot(path, []byte("second\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second\n", string(data))
}
