package fileutils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CopyFile copies a file from source to destination, creating parent
// directories as needed. Permissions and the modification time are carried
// over so the synchronizer's staleness comparison holds on the next run.
func CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.WithStack(err)
	}

	destFile, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		os.Remove(dst)
		return errors.WithStack(err)
	}

	if err := destFile.Chmod(sourceInfo.Mode()); err != nil {
		destFile.Close()
		return errors.WithStack(err)
	}
	if err := destFile.Close(); err != nil {
		return errors.WithStack(err)
	}

	// Mirror the source timestamp; target filesystems may round it, which is
	// what the synchronizer's tolerance window absorbs.
	if err := os.Chtimes(dst, sourceInfo.ModTime(), sourceInfo.ModTime()); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// MoveFile moves a file, falling back to copy-and-delete across filesystems.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := CopyFile(src, dst); err != nil {
		return errors.WithStack(err)
	}

	if err := os.Remove(src); err != nil {
		// Couldn't remove the source; don't leave two copies behind.
		os.Remove(dst)
		return errors.WithStack(err)
	}

	return nil
}

// PruneEmptyDirs removes directories under root that contain no files,
// deepest first. The root itself is never removed.
func PruneEmptyDirs(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil // already-gone or unreadable entries aren't fatal here
		}
		if entry.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Deepest first so emptied parents are caught in the same pass.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			os.Remove(dirs[i])
		}
	}

	return nil
}
