package database

import (
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// Lock takes an advisory lock guarding the database at path. The database
// file is the unit of mutual exclusion: only one pipeline invocation should
// run against a given library root at a time. The lock lives in a sibling
// .lock file so atomic renames of the database itself don't release it.
func Lock(path string) (*flock.Flock, error) {
	l := flock.New(path + ".lock")

	locked, err := l.TryLock()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !locked {
		return nil, errors.Errorf("database %s is in use by another process", path)
	}

	return l, nil
}

// Unlock releases a lock taken with Lock. Safe to call with a nil lock.
func Unlock(l *flock.Flock) {
	if l != nil {
		l.Unlock() //nolint:errcheck
	}
}
