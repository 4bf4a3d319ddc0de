// Package metadata talks to the remote lookup service that enriches records
// with descriptive metadata. The service is a request/response boundary: it
// either returns structured metadata or a not-found/transport outcome, both
// of which are non-fatal to the batch.
package metadata

import (
	"context"
)

// Result is the structured metadata returned by a successful lookup.
type Result struct {
	Title     string
	Subtitle  string
	Authors   []string
	Publisher string
	Year      string
	Language  string
}

// Lookup is the remote metadata service boundary.
type Lookup interface {
	// ByISBN resolves a validated identifier to metadata.
	ByISBN(ctx context.Context, isbn string) (*Result, error)
	// Search resolves a free-form query (usually a cleaned filename guess).
	Search(ctx context.Context, query string) (*Result, error)
}
