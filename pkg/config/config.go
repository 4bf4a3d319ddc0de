package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// SettingsFilename is the settings document looked for at the library root
// when no explicit config path is given.
const SettingsFilename = "settings.yaml"

// StyleOverride is a per-format styling override for the reader device. The
// pipeline stores it in the settings document but never interprets it.
type StyleOverride struct {
	FontSize    float64 `koanf:"font_size" json:"font_size,omitempty"`
	LineHeight  float64 `koanf:"line_height" json:"line_height,omitempty"`
	MarginWidth int     `koanf:"margin_width" json:"margin_width,omitempty"`
}

// Config is the settings document, read once at startup. Every setting has a
// documented default; an absent file or field falls back to it.
type Config struct {
	// LibraryRoot is the directory holding the document files and the two
	// database files. Defaults to the working directory.
	LibraryRoot string `koanf:"library_root"`

	// CanonicalFilename and StagingFilename name the two database files,
	// relative to the library root.
	CanonicalFilename string `koanf:"canonical_filename" default:".metadata.json"`
	StagingFilename   string `koanf:"staging_filename" default:".metadata-imported.json"`

	// PageWindow is the number of leading pages searched for an identifier.
	PageWindow int `koanf:"page_window" default:"10"`

	// Lookup service settings. The concurrency limit exists to respect the
	// remote service's acceptable request rate.
	LookupBaseURL     string        `koanf:"lookup_base_url" default:"https://openlibrary.org"`
	LookupTimeout     time.Duration `koanf:"lookup_timeout" default:"10s"`
	LookupConcurrency int           `koanf:"lookup_concurrency" default:"4"`

	// ExtractConcurrency bounds parallel text-layer extraction.
	ExtractConcurrency int `koanf:"extract_concurrency" default:"2"`

	// SyncTolerance is the modification-time window within which source and
	// target are considered unchanged, to tolerate coarse filesystem
	// timestamp resolution on the device.
	SyncTolerance time.Duration `koanf:"sync_tolerance" default:"2s"`

	// SyncWorkers bounds parallel file copies during synchronization.
	SyncWorkers int `koanf:"sync_workers" default:"4"`

	// Styling maps a file kind (e.g. "pdf", "epub") to a style override.
	Styling map[string]StyleOverride `koanf:"styling"`
}

// New loads the settings document at path, layering defaults, the file (if
// present), and SHELFSYNC_-prefixed environment variables, in that order.
// An empty path means "no settings file": defaults plus environment only.
func New(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, errors.Wrapf(err, "failed to load settings %s", path)
			}
			// Missing settings document: fall back to defaults.
		}
	}

	err := k.Load(env.Provider("SHELFSYNC_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SHELFSYNC_")), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if cfg.LibraryRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		cfg.LibraryRoot = wd
	}

	return cfg, nil
}

// CanonicalPath returns the absolute path of the canonical database file.
func (cfg *Config) CanonicalPath() string {
	return filepath.Join(cfg.LibraryRoot, cfg.CanonicalFilename)
}

// StagingPath returns the absolute path of the staging database file.
func (cfg *Config) StagingPath() string {
	return filepath.Join(cfg.LibraryRoot, cfg.StagingFilename)
}
