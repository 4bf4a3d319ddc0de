package pipeline

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfsync/shelfsync/pkg/database"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
	"github.com/shelfsync/shelfsync/pkg/identifiers"
	"github.com/shelfsync/shelfsync/pkg/models"
	"github.com/shelfsync/shelfsync/pkg/textlayer"
)

// IdentifyResult summarizes an identify pass.
type IdentifyResult struct {
	Identified  int // identifier extracted and validated
	NotFound    int // no checksum-valid candidate within the window
	NoTextLayer int // document has no extractable text
	Unsupported int // no text source for the file kind
	Skipped     int // identifier already present
}

// Identify extracts bibliographic identifiers for staging records that don't
// have one yet. For each record it reads the text layer of the first
// PageWindow pages and takes the first checksum-valid ISBN in document
// order. Extraction failure is per-document and non-fatal to the batch.
// Records are processed with bounded parallelism.
func (p *Pipeline) Identify(ctx context.Context, staging *database.Database) *IdentifyResult {
	log := logger.FromContext(ctx)

	result := &IdentifyResult{}
	var mu sync.Mutex

	var pending []*models.Document
	for _, doc := range staging.Documents() {
		if doc.ISBN != "" {
			result.Skipped++
			continue
		}
		pending = append(pending, doc)
	}

	forEach(ctx, pending, p.cfg.ExtractConcurrency, func(ctx context.Context, doc *models.Document) {
		log := log.Data(logger.Data{"path": doc.Path()})

		src, ok := p.sources.ForKind(doc.File.Kind)
		if !ok {
			mu.Lock()
			result.Unsupported++
			mu.Unlock()
			return
		}

		absPath := filepath.Join(p.cfg.LibraryRoot, filepath.FromSlash(doc.File.Path))

		// EPUBs carry metadata in the package document; take a valid
		// embedded identifier before paying for text extraction.
		if epub, ok := src.(*textlayer.EPUBSource); ok {
			if meta, err := epub.Metadata(absPath); err == nil {
				p.applyEmbedded(doc, meta)
				if doc.ISBN != "" {
					log.Info("identifier found in embedded metadata", logger.Data{"isbn": doc.ISBN})
					mu.Lock()
					result.Identified++
					mu.Unlock()
					return
				}
			}
		}

		text, err := src.Text(ctx, absPath, p.cfg.PageWindow)
		if err != nil {
			if errcodes.HasCode(err, errcodes.CodeTextLayerUnavailable) {
				log.Warn("no text layer available")
				mu.Lock()
				result.NoTextLayer++
				mu.Unlock()
			} else {
				log.Err(err).Error("text extraction error")
				mu.Lock()
				result.NoTextLayer++
				mu.Unlock()
			}
			return
		}

		isbn, found := identifiers.Find(text)
		if !found {
			// Absent from the leading window, predates the scheme, or the
			// text is too corrupted for any substring to pass the checksum.
			log.Info("no valid identifier within window", logger.Data{"error": errcodes.IdentifierNotFound().Error()})
			mu.Lock()
			result.NotFound++
			mu.Unlock()
			return
		}

		doc.ISBN = isbn
		log.Info("identifier extracted", logger.Data{"isbn": isbn})
		mu.Lock()
		result.Identified++
		mu.Unlock()
	})

	return result
}

// applyEmbedded enriches a record with metadata carried inside the document
// file. Additive only: fields already set are never overwritten.
func (p *Pipeline) applyEmbedded(doc *models.Document, meta *textlayer.EmbeddedMetadata) {
	if doc.ISBN == "" && meta.ISBN != "" {
		doc.ISBN = meta.ISBN
	}
	if doc.Title == "" && meta.Title != "" {
		doc.Title = meta.Title
	}
	if doc.Authors == nil && len(meta.Authors) > 0 {
		doc.Authors = meta.Authors
	}
	if doc.Language == "" && meta.Language != "" {
		doc.Language = meta.Language
	}
}
