package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfsync/shelfsync/pkg/cleaner"
	"github.com/shelfsync/shelfsync/pkg/config"
	"github.com/shelfsync/shelfsync/pkg/database"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
	"github.com/shelfsync/shelfsync/pkg/metadata"
	"github.com/shelfsync/shelfsync/pkg/pipeline"
	"github.com/shelfsync/shelfsync/pkg/scanner"
	"github.com/shelfsync/shelfsync/pkg/syncer"
	"github.com/shelfsync/shelfsync/pkg/textlayer"
	"github.com/shelfsync/shelfsync/pkg/version"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	if err := newApp().Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:        "shelfsync",
		Usage:       "import document metadata and sync a library to a reader device",
		Description: "import document metadata and sync a library to a reader device",
		Version:     version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "library",
				Usage: "library root directory (defaults to the working directory)",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "settings file path (defaults to settings.yaml at the library root)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "create an empty canonical database at the library root",
				Action: initAction,
			},
			{
				Name:  "scan",
				Usage: "discover new document files into the staging database",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "keep-staging",
						Usage: "merge discovered records into the existing staging database instead of replacing it, keeping fields earlier passes filled in",
					},
				},
				Action: scanAction,
			},
			{
				Name:   "identify",
				Usage:  "extract identifiers from staged documents",
				Action: identifyAction,
			},
			{
				Name:  "retrieve",
				Usage: "fetch descriptive metadata for staged documents",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "only look up documents with an identifier; skip filename queries",
					},
				},
				Action: retrieveAction,
			},
			{
				Name:   "finalize",
				Usage:  "clean staged records and merge them into the canonical database",
				Action: finalizeAction,
			},
			{
				Name:      "sync",
				Usage:     "mirror the library onto a device tree and merge its database",
				ArgsUsage: "TARGET",
				Action:    syncAction,
			},
			{
				Name:   "check",
				Usage:  "report canonical records whose files are missing",
				Action: checkAction,
			},
			{
				Name:   "status",
				Usage:  "print record counts by pipeline status",
				Action: statusAction,
			},
		},
	}
}

// setup resolves the settings document and binds a run-scoped logger to the
// context. Every command goes through here so log lines from one invocation
// share an ID.
func setup(c *cli.Context) (context.Context, *config.Config, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	log := logger.New().ID(id.String()).Root(logger.Data{"version": version.Version})

	library := c.String("library")
	cfgPath := c.String("config")
	if cfgPath == "" {
		root := library
		if root == "" {
			root = "."
		}
		cfgPath = filepath.Join(root, config.SettingsFilename)
	}

	cfg, err := config.New(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if library != "" {
		cfg.LibraryRoot = library
	}

	return log.WithContext(c.Context), cfg, nil
}

func initAction(c *cli.Context) error {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)

	if err := database.Init(cfg.CanonicalPath()); err != nil {
		return err
	}

	log.Info("canonical database created", logger.Data{"path": cfg.CanonicalPath()})
	fmt.Printf("Initialized empty database at %s\n", cfg.CanonicalPath())
	return nil
}

func scanAction(c *cli.Context) error {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	lock, err := database.Lock(cfg.StagingPath())
	if err != nil {
		return err
	}
	defer database.Unlock(lock)

	canonical, err := loadOrEmpty(cfg.CanonicalPath())
	if err != nil {
		return err
	}

	discovered, result, err := scanner.Scan(ctx, cfg.LibraryRoot, canonical)
	if err != nil {
		return err
	}

	// Each scan replaces the staging set. --keep-staging merges instead, so
	// records mid-pipeline keep the fields earlier passes filled in.
	staging := discovered
	if c.Bool("keep-staging") {
		existing, err := loadOrEmpty(cfg.StagingPath())
		if err != nil {
			return err
		}
		staging = database.Merge(existing, discovered)
	}
	if err := staging.Save(cfg.StagingPath()); err != nil {
		return err
	}

	fmt.Printf("Discovered %d new, %d known, %d skipped\n", result.Discovered, result.Known, result.Skipped)
	return nil
}

func identifyAction(c *cli.Context) error {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	lock, err := database.Lock(cfg.StagingPath())
	if err != nil {
		return err
	}
	defer database.Unlock(lock)

	staging, err := database.Load(cfg.StagingPath())
	if err != nil {
		return err
	}

	sources, err := textlayer.NewRegistry()
	if err != nil {
		return err
	}
	defer sources.Close()

	p := pipeline.New(cfg, sources, nil)
	result := p.Identify(ctx, staging)

	if err := staging.Save(cfg.StagingPath()); err != nil {
		return err
	}

	fmt.Printf("Identified %d, not found %d, no text layer %d, unsupported %d, skipped %d\n",
		result.Identified, result.NotFound, result.NoTextLayer, result.Unsupported, result.Skipped)
	return nil
}

func retrieveAction(c *cli.Context) error {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	lock, err := database.Lock(cfg.StagingPath())
	if err != nil {
		return err
	}
	defer database.Unlock(lock)

	staging, err := database.Load(cfg.StagingPath())
	if err != nil {
		return err
	}

	lookup := metadata.NewOpenLibraryClient(cfg.LookupBaseURL, nil)
	p := pipeline.New(cfg, nil, lookup)
	result := p.Retrieve(ctx, staging, c.Bool("strict"))

	if err := staging.Save(cfg.StagingPath()); err != nil {
		return err
	}

	fmt.Printf("Retrieved %d, failed %d, skipped %d\n", result.Retrieved, result.Failed, result.Skipped)
	return nil
}

func finalizeAction(c *cli.Context) error {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)

	// Finalize consumes the staging file and rewrites the canonical one, so
	// it holds both locks; a concurrent pass on either file is refused.
	stagingLock, err := database.Lock(cfg.StagingPath())
	if err != nil {
		return err
	}
	defer database.Unlock(stagingLock)

	lock, err := database.Lock(cfg.CanonicalPath())
	if err != nil {
		return err
	}
	defer database.Unlock(lock)

	staging, err := database.Load(cfg.StagingPath())
	if err != nil {
		return err
	}
	canonical, err := loadOrEmpty(cfg.CanonicalPath())
	if err != nil {
		return err
	}

	cleanResult := cleaner.Clean(ctx, staging)
	merged := database.Merge(canonical, staging)

	if err := merged.Save(cfg.CanonicalPath()); err != nil {
		return err
	}

	// The staging database is consumed by a successful merge; the next scan
	// starts it fresh. Removal happens only after the canonical save landed.
	if err := os.Remove(cfg.StagingPath()); err != nil {
		log.Err(err).Error("failed to remove staging database")
	}

	fmt.Printf("Merged %d records into %s (%d cleaned, %d fields dropped)\n",
		staging.Len(), cfg.CanonicalPath(), cleanResult.Cleaned, cleanResult.FieldsDropped)
	return nil
}

func syncAction(c *cli.Context) error {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)

	target := c.Args().First()
	if target == "" {
		return errcodes.Validation("target", "sync requires a TARGET directory argument")
	}

	if !database.Exists(cfg.CanonicalPath()) {
		return errcodes.NotFound(cfg.CanonicalPath())
	}

	result, err := syncer.Sync(ctx, syncer.Options{
		SourceRoot: cfg.LibraryRoot,
		TargetRoot: target,
		Tolerance:  cfg.SyncTolerance,
		Exclude:    []string{cfg.CanonicalFilename, cfg.StagingFilename, config.SettingsFilename},
		Workers:    cfg.SyncWorkers,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Copied %d, deleted %d, unchanged %d, failed %d, collisions %d\n",
		result.Copied, result.Deleted, result.Unchanged, result.Failed, len(result.Collisions))
	for _, rel := range result.Collisions {
		fmt.Printf("  collision: %s (source preferred)\n", rel)
	}

	// The device database must never reference a file that didn't transfer,
	// so the merge only runs once every file operation completed.
	if result.Failed > 0 {
		log.Warn("device database merge skipped", logger.Data{"failed": result.Failed})
		fmt.Printf("Database merge skipped: %d file operations failed; re-run sync\n", result.Failed)
		return nil
	}

	targetDB := filepath.Join(target, cfg.CanonicalFilename)
	if err := syncer.MergeDatabase(cfg.CanonicalPath(), targetDB); err != nil {
		return err
	}
	log.Info("device database merged", logger.Data{"path": targetDB})

	return nil
}

func checkAction(c *cli.Context) error {
	_, cfg, err := setup(c)
	if err != nil {
		return err
	}

	canonical, err := database.Load(cfg.CanonicalPath())
	if err != nil {
		return err
	}

	missing := canonical.MissingFiles(cfg.LibraryRoot)
	if len(missing) == 0 {
		fmt.Printf("All %d records resolve to files\n", canonical.Len())
		return nil
	}

	fmt.Printf("%d of %d records have missing files:\n", len(missing), canonical.Len())
	for _, rel := range missing {
		fmt.Printf("  %s\n", rel)
	}
	return nil
}

func statusAction(c *cli.Context) error {
	_, cfg, err := setup(c)
	if err != nil {
		return err
	}

	canonical, err := loadOrEmpty(cfg.CanonicalPath())
	if err != nil {
		return err
	}
	staging, err := loadOrEmpty(cfg.StagingPath())
	if err != nil {
		return err
	}

	fmt.Printf("Canonical (%s):\n%s\n", cfg.CanonicalFilename, pipeline.BuildReport(canonical))
	if staging.Len() > 0 {
		fmt.Printf("\nStaging (%s):\n%s\n", cfg.StagingFilename, pipeline.BuildReport(staging))
	}
	return nil
}

func loadOrEmpty(path string) (*database.Database, error) {
	if !database.Exists(path) {
		return database.New(), nil
	}
	return database.Load(path)
}
