package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/pkg/models"
)

func doc(path string) *models.Document {
	return &models.Document{
		Added: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		File:  models.FileInfo{Path: path, Kind: "pdf", Size: 2048},
	}
}

func TestDatabaseOrderPreserved(t *testing.T) {
	db := New()
	db.Put(doc("z/last.pdf"))
	db.Put(doc("a/first.pdf"))
	db.Put(doc("m/middle.pdf"))

	assert.Equal(t, []string{"z/last.pdf", "a/first.pdf", "m/middle.pdf"}, db.Paths())

	// Replacing a record keeps its original position.
	db.Put(doc("a/first.pdf"))
	assert.Equal(t, []string{"z/last.pdf", "a/first.pdf", "m/middle.pdf"}, db.Paths())
}

func TestDatabaseRoundTrip(t *testing.T) {
	db := New()
	db.Put(doc("z/last.pdf"))
	first := doc("a/first.pdf")
	first.ISBN = "9780140449136"
	first.Title = "The Odyssey"
	first.Authors = []string{"Homer"}
	db.Put(first)

	dir := t.TempDir()
	path := filepath.Join(dir, CanonicalFilename)
	require.NoError(t, db.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, db.Paths(), loaded.Paths())
	for _, key := range db.Paths() {
		assert.True(t, db.Get(key).Equal(loaded.Get(key)), "record %s", key)
	}
}

func TestDatabaseDuplicateKeyRejected(t *testing.T) {
	data := []byte(`{
  "a.pdf": {"added": "2024-03-01T12:00:00Z", "file": {"path": "a.pdf", "kind": "pdf", "size": 1}},
  "a.pdf": {"added": "2024-03-01T12:00:00Z", "file": {"path": "a.pdf", "kind": "pdf", "size": 2}}
}`)

	db := New()
	err := db.UnmarshalJSON(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate document identity")
}

func TestDatabaseKeyPathMismatchRejected(t *testing.T) {
	data := []byte(`{
  "a.pdf": {"added": "2024-03-01T12:00:00Z", "file": {"path": "b.pdf", "kind": "pdf", "size": 1}}
}`)

	db := New()
	err := db.UnmarshalJSON(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched file path")
}

func TestDatabaseKeyFillsEmptyFilePath(t *testing.T) {
	data := []byte(`{
  "a.pdf": {"added": "2024-03-01T12:00:00Z", "file": {"kind": "pdf", "size": 1}}
}`)

	db := New()
	require.NoError(t, db.UnmarshalJSON(data))
	assert.Equal(t, "a.pdf", db.Get("a.pdf").File.Path)
}

func TestDatabaseNotAnObjectRejected(t *testing.T) {
	db := New()
	err := db.UnmarshalJSON([]byte(`[1, 2, 3]`))
	require.Error(t, err)
}

func TestDatabaseUnmarshalPreservesKeyOrder(t *testing.T) {
	data := []byte(`{
  "z/last.pdf": {"added": "2024-03-01T12:00:00Z", "file": {"path": "z/last.pdf", "kind": "pdf", "size": 1}},
  "a/first.pdf": {"added": "2024-03-01T12:00:00Z", "file": {"path": "a/first.pdf", "kind": "pdf", "size": 2}},
  "m/middle.pdf": {"added": "2024-03-01T12:00:00Z", "file": {"path": "m/middle.pdf", "kind": "pdf", "size": 3}}
}`)

	db := New()
	require.NoError(t, db.UnmarshalJSON(data))

	assert.Equal(t, []string{"z/last.pdf", "a/first.pdf", "m/middle.pdf"}, db.Paths())
	assert.Equal(t, int64(2), db.Get("a/first.pdf").File.Size)
}

func TestDatabaseTrailingGarbageRejected(t *testing.T) {
	data := []byte(`{
  "a.pdf": {"added": "2024-03-01T12:00:00Z", "file": {"path": "a.pdf", "kind": "pdf", "size": 1}}
} stray edit`)

	db := New()
	err := db.UnmarshalJSON(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing data")
}

func TestDatabaseSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CanonicalFilename)

	db := New()
	db.Put(doc("a.pdf"))
	require.NoError(t, db.Save(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, CanonicalFilename, entries[0].Name())
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CanonicalFilename)

	require.NoError(t, Init(path))
	assert.True(t, Exists(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())

	// A second init must not clobber the existing database.
	err = Init(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	err = Init(filepath.Join(dir, "missing", CanonicalFilename))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library root does not exist")
}

func TestDatabaseDelete(t *testing.T) {
	db := New()
	db.Put(doc("a.pdf"))
	db.Put(doc("b.pdf"))

	assert.True(t, db.Delete("a.pdf"))
	assert.False(t, db.Delete("a.pdf"))
	assert.Equal(t, []string{"b.pdf"}, db.Paths())
}
