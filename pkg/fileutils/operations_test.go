package fileutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0640))

	stamp := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, stamp, stamp))

	dst := filepath.Join(dir, "nested", "deeper", "dst.pdf")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(stamp))
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "absent"), filepath.Join(dir, "dst"))
	require.Error(t, err)
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0600))

	dst := filepath.Join(dir, "dst.pdf")
	require.NoError(t, MoveFile(src, dst))

	assert.NoFileExists(t, src)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestPruneEmptyDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "keep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep", "file.txt"), []byte("x"), 0600))

	require.NoError(t, PruneEmptyDirs(root))

	assert.NoDirExists(t, filepath.Join(root, "a"))
	assert.DirExists(t, filepath.Join(root, "keep"))
	assert.DirExists(t, root)
}
