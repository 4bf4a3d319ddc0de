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

func TestMerge(t *testing.T) {
	t.Run("new records are appended", func(t *testing.T) {
		canonical := New()
		canonical.Put(doc("a.pdf"))

		staging := New()
		staging.Put(doc("b.pdf"))

		merged := Merge(canonical, staging)

		assert.Equal(t, []string{"a.pdf", "b.pdf"}, merged.Paths())
		// Inputs are left untouched.
		assert.Equal(t, 1, canonical.Len())
		assert.Equal(t, 1, staging.Len())
	})

	t.Run("staging fields win per field", func(t *testing.T) {
		existing := doc("a.pdf")
		existing.ISBN = "9780140449136"
		existing.Title = "Operator Title"
		canonical := New()
		canonical.Put(existing)

		incoming := doc("a.pdf")
		incoming.Title = "Retrieved Title"
		incoming.Publisher = "Penguin"
		staging := New()
		staging.Put(incoming)

		merged := Merge(canonical, staging)
		got := merged.Get("a.pdf")

		assert.Equal(t, "Retrieved Title", got.Title)
		assert.Equal(t, "Penguin", got.Publisher)
		assert.Equal(t, "9780140449136", got.ISBN)
	})

	t.Run("identifier and title from different sides both survive", func(t *testing.T) {
		existing := doc("a.pdf")
		existing.ISBN = "9780140449136"
		canonical := New()
		canonical.Put(existing)

		incoming := doc("a.pdf")
		incoming.Title = "The Odyssey"
		staging := New()
		staging.Put(incoming)

		got := Merge(canonical, staging).Get("a.pdf")

		assert.Equal(t, "9780140449136", got.ISBN)
		assert.Equal(t, "The Odyssey", got.Title)
		assert.Equal(t, models.StatusComplete, got.Status())
	})

	t.Run("canonical records are never deleted", func(t *testing.T) {
		canonical := New()
		canonical.Put(doc("kept.pdf"))

		merged := Merge(canonical, New())
		assert.True(t, merged.Has("kept.pdf"))
	})

	t.Run("idempotent", func(t *testing.T) {
		canonical := New()
		canonical.Put(doc("a.pdf"))

		incoming := doc("a.pdf")
		incoming.Title = "Title"
		staging := New()
		staging.Put(incoming)

		once := Merge(canonical, staging)
		twice := Merge(once, staging)

		assert.Equal(t, once.Paths(), twice.Paths())
		for _, key := range once.Paths() {
			assert.True(t, once.Get(key).Equal(twice.Get(key)), "record %s", key)
		}
	})

	t.Run("earlier added timestamp is kept", func(t *testing.T) {
		existing := doc("a.pdf")
		canonical := New()
		canonical.Put(existing)

		incoming := doc("a.pdf")
		incoming.Added = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		staging := New()
		staging.Put(incoming)

		got := Merge(canonical, staging).Get("a.pdf")
		assert.Equal(t, existing.Added, got.Added)
	})
}

func TestMissingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "fiction"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "fiction", "present.pdf"), []byte("x"), 0600))

	db := New()
	db.Put(doc("fiction/present.pdf"))
	db.Put(doc("fiction/gone.pdf"))

	missing := db.MissingFiles(root)
	assert.Equal(t, []string{"fiction/gone.pdf"}, missing)

	// Reporting never mutates the database.
	assert.True(t, db.Has("fiction/gone.pdf"))
}
