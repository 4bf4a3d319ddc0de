// Package syncer mirrors the canonical library tree onto a reader device
// tree. File synchronization is one-directional (source wins); the metadata
// database is merged rather than mirrored, because the device copy may carry
// operator edits of its own.
package syncer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfsync/shelfsync/pkg/database"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
	"github.com/shelfsync/shelfsync/pkg/fileutils"
)

// Options configures a synchronization run.
type Options struct {
	SourceRoot string
	TargetRoot string

	// Tolerance is the modification-time window within which a file is
	// considered unchanged, absorbing coarse timestamp resolution on target
	// filesystems (FAT rounds to 2s).
	Tolerance time.Duration

	// Exclude lists relative paths that are neither copied nor deleted by
	// absence; at minimum the database files, which are merged explicitly.
	Exclude []string

	// Workers bounds parallel copies.
	Workers int
}

// Result summarizes a synchronization run.
type Result struct {
	Copied     int
	Deleted    int
	Unchanged  int
	Failed     int
	Collisions []string // target files that diverged; source preferred
}

type copyTask struct {
	rel       string
	collision bool
}

// Sync mirrors the source tree onto the target tree: new and stale files are
// copied, files present only in the target are deleted, excluded paths are
// left alone. Copies run in parallel; per-file failures are logged and
// counted, not fatal. Callers merge the database only after Sync returns, so
// the device database never references files that didn't transfer.
func Sync(ctx context.Context, opts Options) (*Result, error) {
	log := logger.FromContext(ctx)
	result := &Result{}

	excluded := map[string]struct{}{}
	for _, rel := range opts.Exclude {
		excluded[filepath.ToSlash(rel)] = struct{}{}
	}

	targetFiles, err := indexTree(opts.TargetRoot, excluded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to index target tree")
	}

	sourceFiles, err := indexTree(opts.SourceRoot, excluded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to index source tree")
	}

	// Decide copies sequentially, then execute them in parallel: the
	// comparison is cheap, the transfer is not.
	var tasks []copyTask
	for rel, srcInfo := range sourceFiles {
		tgtInfo, exists := targetFiles[rel]
		if !exists {
			tasks = append(tasks, copyTask{rel: rel})
			continue
		}

		stale := srcInfo.Size() != tgtInfo.Size() ||
			absDuration(srcInfo.ModTime().Sub(tgtInfo.ModTime())) > opts.Tolerance
		if !stale {
			result.Unchanged++
			continue
		}

		// A target modified after the source can't be reconciled by
		// size and timestamp alone; the conservative default is to
		// prefer the source and overwrite.
		collision := tgtInfo.ModTime().After(srcInfo.ModTime().Add(opts.Tolerance))
		tasks = append(tasks, copyTask{rel: rel, collision: collision})
	}

	var mu sync.Mutex
	runCopies(ctx, tasks, opts.Workers, func(ctx context.Context, task copyTask) {
		src := filepath.Join(opts.SourceRoot, filepath.FromSlash(task.rel))
		dst := filepath.Join(opts.TargetRoot, filepath.FromSlash(task.rel))

		if task.collision {
			log.Warn("overwriting diverged target file", logger.Data{
				"path":  task.rel,
				"error": errcodes.SyncCollision(task.rel).Error(),
			})
		}

		if err := fileutils.CopyFile(src, dst); err != nil {
			log.Err(err).Error("copy failed", logger.Data{"path": task.rel})
			mu.Lock()
			result.Failed++
			mu.Unlock()
			return
		}

		log.Info("copied file", logger.Data{"path": task.rel})
		mu.Lock()
		result.Copied++
		if task.collision {
			result.Collisions = append(result.Collisions, task.rel)
		}
		mu.Unlock()
	})

	// Deletion propagates absence: anything in the target that the source
	// no longer has goes away, except the exclusion list.
	for rel := range targetFiles {
		if _, keep := sourceFiles[rel]; keep {
			continue
		}
		path := filepath.Join(opts.TargetRoot, filepath.FromSlash(rel))
		if err := os.Remove(path); err != nil {
			log.Err(err).Error("delete failed", logger.Data{"path": rel})
			result.Failed++
			continue
		}
		log.Info("deleted target-only file", logger.Data{"path": rel})
		result.Deleted++
	}

	if err := fileutils.PruneEmptyDirs(opts.TargetRoot); err != nil {
		log.Warn("failed to prune empty directories", logger.Data{"error": err.Error()})
	}

	return result, nil
}

// MergeDatabase merges the canonical database into the target's copy. The
// device copy is the base and the canonical records overlay it field by
// field, so device-side operator edits survive wherever the canonical field
// is absent. Must run only after file synchronization completes.
func MergeDatabase(sourceDBPath, targetDBPath string) error {
	source, err := database.Load(sourceDBPath)
	if err != nil {
		return errors.WithStack(err)
	}

	target := database.New()
	if database.Exists(targetDBPath) {
		target, err = database.Load(targetDBPath)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	merged := database.Merge(target, source)
	return merged.Save(targetDBPath)
}

// indexTree maps relative slash paths to file info for every regular file
// under root, skipping excluded paths and transient artifacts (lock files,
// interrupted atomic saves). A missing root yields an empty index, which for
// a first sync to a blank device is the correct answer.
func indexTree(root string, excluded map[string]struct{}) (map[string]fs.FileInfo, error) {
	files := map[string]fs.FileInfo{}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return errors.WithStack(err)
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		if strings.HasSuffix(entry.Name(), ".lock") || strings.HasSuffix(entry.Name(), ".tmp") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithStack(err)
		}
		rel = filepath.ToSlash(rel)
		if _, skip := excluded[rel]; skip {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return errors.WithStack(err)
		}
		files[rel] = info

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func runCopies(ctx context.Context, tasks []copyTask, workers int, fn func(ctx context.Context, task copyTask)) {
	if workers <= 0 {
		workers = 1
	}

	queue := make(chan copyTask)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				fn(ctx, task)
			}
		}()
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		queue <- task
	}
	close(queue)
	wg.Wait()
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
