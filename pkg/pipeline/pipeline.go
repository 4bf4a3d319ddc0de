// Package pipeline orchestrates the import passes over the staging database.
// Each pass is resumable and independently re-runnable; a document failing
// one stage never blocks the others or the rest of the batch.
package pipeline

import (
	"github.com/shelfsync/shelfsync/pkg/config"
	"github.com/shelfsync/shelfsync/pkg/metadata"
	"github.com/shelfsync/shelfsync/pkg/textlayer"
)

// Pipeline holds the capabilities shared by the import passes.
type Pipeline struct {
	cfg     *config.Config
	sources *textlayer.Registry
	lookup  metadata.Lookup
}

// New returns a pipeline using the given text-layer registry and lookup
// service.
func New(cfg *config.Config, sources *textlayer.Registry, lookup metadata.Lookup) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		sources: sources,
		lookup:  lookup,
	}
}
