// Package textlayer provides best-effort text dumps of the leading pages of
// library documents. Rendering backends sit behind the Source interface so
// the identify pass can be tested against fakes.
package textlayer

import (
	"context"
)

// Source returns the text layer of the first pages of the document at path,
// or an error carrying errcodes.CodeTextLayerUnavailable when the document
// has no extractable text.
type Source interface {
	Text(ctx context.Context, path string, pages int) (string, error)
}

// Registry dispatches to a Source by file kind.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds the default registry: pdfium-backed PDFs, zip-packaged
// EPUBs, and plain text files.
func NewRegistry() (*Registry, error) {
	pdf, err := NewPDFSource()
	if err != nil {
		return nil, err
	}

	return &Registry{
		sources: map[string]Source{
			"pdf":  pdf,
			"epub": &EPUBSource{},
			"txt":  &PlainTextSource{},
		},
	}, nil
}

// ForKind returns the source handling a file kind, if any.
func (r *Registry) ForKind(kind string) (Source, bool) {
	src, ok := r.sources[kind]
	return src, ok
}

// Register installs or replaces the source for a kind. Registering into a
// zero-value Registry works, so tests can start from an empty one.
func (r *Registry) Register(kind string, src Source) {
	if r.sources == nil {
		r.sources = map[string]Source{}
	}
	r.sources[kind] = src
}

// Close releases any backend resources held by the registered sources.
func (r *Registry) Close() {
	for _, src := range r.sources {
		if c, ok := src.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
