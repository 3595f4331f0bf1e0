package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestComputeFileHash_Stable(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "hello world")

	h1, err := ComputeFileHash(path)
	require.NoError(t, err)
	h2, err := ComputeFileHash(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)
}

func TestComputeFileHash_MissingFile(t *testing.T) {
	_, err := ComputeFileHash(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestScanUploadDirectory_FindsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", "aaa")
	writeFile(t, dir, "nested/b.pdf", "bbb")

	found := ScanUploadDirectory(dir)
	paths := pathsOf(found)
	assert.ElementsMatch(t, []string{"a.pdf", filepath.Join("nested", "b.pdf")}, paths)
}

func TestScanUploadDirectory_SkipsHiddenFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "visible.pdf", "v")
	writeFile(t, dir, ".hidden.pdf", "h")
	writeFile(t, dir, ".trash/removed.pdf", "r")

	found := ScanUploadDirectory(dir)
	paths := pathsOf(found)
	assert.ElementsMatch(t, []string{"visible.pdf"}, paths)
}

func TestScanUploadDirectory_MissingDirReturnsEmpty(t *testing.T) {
	found := ScanUploadDirectory(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Empty(t, found)
}

func TestScanUploadDirectory_NonDirectoryReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "file.txt", "x")
	found := ScanUploadDirectory(path)
	assert.Empty(t, found)
}

func TestScanUploadDirectory_MetadataFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.pdf", "content")

	found := ScanUploadDirectory(dir)
	require.Len(t, found, 1)
	assert.Equal(t, "doc.pdf", found[0].Path)
	assert.Equal(t, "doc.pdf", found[0].Name)
	assert.Equal(t, int64(len("content")), found[0].Size)
	assert.NotEmpty(t, found[0].Hash)
	assert.False(t, found[0].LastModified.IsZero())
}

func pathsOf(meta []FileMetadata) []string {
	out := make([]string, len(meta))
	for i, m := range meta {
		out[i] = m.Path
	}
	return out
}
