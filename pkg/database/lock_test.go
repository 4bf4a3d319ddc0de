package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), CanonicalFilename)

	l, err := Lock(path)
	require.NoError(t, err)
	defer Unlock(l)

	// Same lock file, second holder: refused.
	_, err = Lock(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use by another process")
}

func TestLockReleasedOnUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), CanonicalFilename)

	l, err := Lock(path)
	require.NoError(t, err)
	Unlock(l)

	l2, err := Lock(path)
	require.NoError(t, err)
	Unlock(l2)
}

func TestUnlockNilIsSafe(t *testing.T) {
	Unlock(nil)
}
