package pipeline

import (
	"context"
	"sync"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfsync/shelfsync/pkg/database"
	"github.com/shelfsync/shelfsync/pkg/metadata"
	"github.com/shelfsync/shelfsync/pkg/models"
)

// RetrieveResult summarizes a retrieve pass.
type RetrieveResult struct {
	Retrieved int // metadata fetched and applied
	Failed    int // not found or transport error, flagged for review
	Skipped   int // already enriched, or no identifier in strict mode
}

// Retrieve fetches descriptive metadata for staging records that don't have
// a title yet. Records with an identifier are looked up by it; the rest fall
// back to a query cleaned from the file name unless strict is set, in which
// case they are skipped. A failed lookup flags the record for operator
// review; nothing is retried within the pass, and a re-run of this pass is
// the only way a flagged record is attempted again. Requests run with
// bounded parallelism and a per-call timeout.
func (p *Pipeline) Retrieve(ctx context.Context, staging *database.Database, strict bool) *RetrieveResult {
	log := logger.FromContext(ctx)

	result := &RetrieveResult{}
	var mu sync.Mutex

	var pending []*models.Document
	for _, doc := range staging.Documents() {
		if doc.Title != "" {
			result.Skipped++
			continue
		}
		pending = append(pending, doc)
	}

	forEach(ctx, pending, p.cfg.LookupConcurrency, func(ctx context.Context, doc *models.Document) {
		log := log.Data(logger.Data{"path": doc.Path()})

		var (
			res   *metadata.Result
			query string
			err   error
		)

		callCtx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
		defer cancel()

		if doc.ISBN != "" {
			query = doc.ISBN
			res, err = p.lookup.ByISBN(callCtx, doc.ISBN)
		} else {
			if strict {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return
			}
			query = metadata.QueryFromFilename(doc.File.Path)
			if query == "" {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return
			}
			res, err = p.lookup.Search(callCtx, query)
		}

		doc.Query = query

		if err != nil {
			doc.Review = err.Error()
			log.Warn("metadata lookup failed", logger.Data{"query": query, "error": err.Error()})
			mu.Lock()
			result.Failed++
			mu.Unlock()
			return
		}

		applyResult(doc, res)
		doc.Review = ""
		log.Info("metadata retrieved", logger.Data{"query": query, "title": res.Title})
		mu.Lock()
		result.Retrieved++
		mu.Unlock()
	})

	return result
}

// applyResult populates absent descriptive fields from a lookup result.
// Additive only: operator edits and embedded metadata are never overwritten.
func applyResult(doc *models.Document, res *metadata.Result) {
	if doc.Title == "" {
		doc.Title = res.Title
	}
	if doc.Subtitle == "" {
		doc.Subtitle = res.Subtitle
	}
	if doc.Authors == nil && len(res.Authors) > 0 {
		doc.Authors = res.Authors
	}
	if doc.Publisher == "" {
		doc.Publisher = res.Publisher
	}
	if doc.Year == "" {
		doc.Year = res.Year
	}
	if doc.Language == "" {
		doc.Language = res.Language
	}
}
