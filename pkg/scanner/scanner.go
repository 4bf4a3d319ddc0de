package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfsync/shelfsync/pkg/database"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
	"github.com/shelfsync/shelfsync/pkg/models"
)

// Result summarizes a scan pass.
type Result struct {
	Discovered int // new staging records
	Known      int // files already in the canonical database
	Skipped    int // unreadable entries logged and passed over
}

// Scan walks the library root and returns a fresh staging database holding a
// record for every regular file whose relative path is not already a
// canonical identity. Callers decide whether the result replaces the existing
// staging set or is merged into it. Unreadable entries are logged and skipped; only
// failure to walk the root itself aborts the scan.
func Scan(ctx context.Context, root string, canonical *database.Database) (*database.Database, *Result, error) {
	log := logger.FromContext(ctx)

	staging := database.New()
	result := &Result{}
	now := time.Now().UTC().Truncate(time.Second)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return errors.WithStack(err)
			}
			log.Warn("skipping unreadable entry", logger.Data{"path": path, "error": errcodes.ScanIO(path, err).Error()})
			result.Skipped++
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := entry.Name()
		if entry.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || skipFile(name) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithStack(err)
		}
		rel = filepath.ToSlash(rel)

		if canonical.Has(rel) {
			result.Known++
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			log.Warn("skipping unreadable entry", logger.Data{"path": path, "error": errcodes.ScanIO(path, err).Error()})
			result.Skipped++
			return nil
		}

		staging.Put(&models.Document{
			Added: now,
			File: models.FileInfo{
				Path: rel,
				Kind: fileKind(path),
				Size: info.Size(),
			},
			Categories: categories(rel),
		})
		result.Discovered++
		log.Info("discovered file", logger.Data{"path": rel})

		return nil
	})
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	return staging, result, nil
}

// skipFile reports whether a file name is never treated as a document:
// hidden files, which include the database files, their locks, and temp
// files from interrupted saves, plus the settings document.
func skipFile(name string) bool {
	return strings.HasPrefix(name, ".") || name == "settings.yaml"
}

// fileKind returns the lowercase extension without its leading dot. Files
// without an extension fall back to content sniffing, since documents copied
// from some sources arrive without one.
func fileKind(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return ""
		}
		ext = mtype.Extension()
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// categories derives the ordered category labels from the path segments
// between the library root and the file. A file directly under the root has
// none.
func categories(rel string) []string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(dir, "/")
}
