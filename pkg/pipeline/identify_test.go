package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/internal/testgen"
	"github.com/shelfsync/shelfsync/pkg/config"
	"github.com/shelfsync/shelfsync/pkg/database"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
	"github.com/shelfsync/shelfsync/pkg/models"
	"github.com/shelfsync/shelfsync/pkg/textlayer"
)

func testContext() context.Context {
	return logger.New().WithContext(context.Background())
}

func testConfig(root string) *config.Config {
	return &config.Config{
		LibraryRoot:        root,
		PageWindow:         10,
		ExtractConcurrency: 2,
		LookupConcurrency:  2,
		LookupTimeout:      testLookupTimeout,
	}
}

// fakeSource serves canned per-page text keyed by base file name, honoring
// the requested page window.
type fakeSource struct {
	pages       map[string][]string
	unavailable bool
}

func (f *fakeSource) Text(_ context.Context, path string, pages int) (string, error) {
	if f.unavailable {
		return "", errcodes.TextLayerUnavailable(path)
	}
	ps := f.pages[filepath.Base(path)]
	if pages < len(ps) {
		ps = ps[:pages]
	}
	return strings.Join(ps, "\n"), nil
}

func stagingWith(docs ...*models.Document) *database.Database {
	db := database.New()
	for _, doc := range docs {
		db.Put(doc)
	}
	return db
}

func pdfDoc(path string) *models.Document {
	return &models.Document{File: models.FileInfo{Path: path, Kind: "pdf"}}
}

func TestIdentifyExtractsISBN(t *testing.T) {
	root := t.TempDir()
	src := &fakeSource{pages: map[string][]string{
		"novel.pdf": {"Copyright page", "ISBN 978-0-14-044913-6", "Chapter one"},
	}}

	sources := &textlayer.Registry{}
	sources.Register("pdf", src)

	staging := stagingWith(pdfDoc("fiction/novel.pdf"))
	p := New(testConfig(root), sources, nil)

	result := p.Identify(testContext(), staging)

	assert.Equal(t, 1, result.Identified)
	assert.Equal(t, "9780140449136", staging.Get("fiction/novel.pdf").ISBN)
}

func TestIdentifySkipsAlreadyIdentified(t *testing.T) {
	doc := pdfDoc("a.pdf")
	doc.ISBN = "9780140449136"

	sources := &textlayer.Registry{}
	sources.Register("pdf", &fakeSource{unavailable: true})

	p := New(testConfig(t.TempDir()), sources, nil)
	result := p.Identify(testContext(), stagingWith(doc))

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.NoTextLayer)
	assert.Equal(t, "9780140449136", doc.ISBN)
}

func TestIdentifyWindowBoundary(t *testing.T) {
	// The identifier sits on the page just past the window and must not be
	// found.
	pages := make([]string, 11)
	for i := range pages {
		pages[i] = "front matter"
	}
	pages[10] = "ISBN 978-0-14-044913-6"

	sources := &textlayer.Registry{}
	sources.Register("pdf", &fakeSource{pages: map[string][]string{"a.pdf": pages}})

	staging := stagingWith(pdfDoc("a.pdf"))
	p := New(testConfig(t.TempDir()), sources, nil)
	result := p.Identify(testContext(), staging)

	assert.Equal(t, 1, result.NotFound)
	assert.Empty(t, staging.Get("a.pdf").ISBN)
}

func TestIdentifyNoTextLayer(t *testing.T) {
	sources := &textlayer.Registry{}
	sources.Register("pdf", &fakeSource{unavailable: true})

	staging := stagingWith(pdfDoc("a.pdf"), pdfDoc("b.pdf"))
	p := New(testConfig(t.TempDir()), sources, nil)
	result := p.Identify(testContext(), staging)

	// Per-document failure never blocks the rest of the batch.
	assert.Equal(t, 2, result.NoTextLayer)
	assert.Equal(t, 0, result.Identified)
}

func TestIdentifyUnsupportedKind(t *testing.T) {
	staging := stagingWith(&models.Document{File: models.FileInfo{Path: "a.docx", Kind: "docx"}})
	p := New(testConfig(t.TempDir()), &textlayer.Registry{}, nil)
	result := p.Identify(testContext(), staging)

	assert.Equal(t, 1, result.Unsupported)
}

func TestIdentifyInvalidCandidatesIgnored(t *testing.T) {
	sources := &textlayer.Registry{}
	sources.Register("pdf", &fakeSource{pages: map[string][]string{
		"a.pdf": {"Call 555-123-4567 or fax 978-0-14-044913-7"}, // bad check digit
	}})

	staging := stagingWith(pdfDoc("a.pdf"))
	p := New(testConfig(t.TempDir()), sources, nil)
	result := p.Identify(testContext(), staging)

	assert.Equal(t, 1, result.NotFound)
}

func TestIdentifyUsesEmbeddedEPUBMetadata(t *testing.T) {
	root := t.TempDir()
	testgen.GenerateEPUB(t, root, "novel.epub", testgen.EPUBOptions{
		Title:   "The Odyssey",
		Authors: []string{"Homer"},
		ISBN:    "978-0-14-044913-6",
	})

	sources := &textlayer.Registry{}
	sources.Register("epub", &textlayer.EPUBSource{})

	staging := stagingWith(&models.Document{File: models.FileInfo{Path: "novel.epub", Kind: "epub"}})
	p := New(testConfig(root), sources, nil)
	result := p.Identify(testContext(), staging)

	require.Equal(t, 1, result.Identified)
	doc := staging.Get("novel.epub")
	assert.Equal(t, "9780140449136", doc.ISBN)
	assert.Equal(t, "The Odyssey", doc.Title)
	assert.Equal(t, []string{"Homer"}, doc.Authors)
	assert.Equal(t, "en", doc.Language)
}

func TestIdentifyEPUBWithoutIdentifierFallsBackToText(t *testing.T) {
	root := t.TempDir()
	testgen.GenerateEPUB(t, root, "novel.epub", testgen.EPUBOptions{
		Chapters: []string{"Front matter with ISBN 978-0-14-044913-6 printed."},
	})

	sources := &textlayer.Registry{}
	sources.Register("epub", &textlayer.EPUBSource{})

	staging := stagingWith(&models.Document{File: models.FileInfo{Path: "novel.epub", Kind: "epub"}})
	p := New(testConfig(root), sources, nil)
	result := p.Identify(testContext(), staging)

	require.Equal(t, 1, result.Identified)
	assert.Equal(t, "9780140449136", staging.Get("novel.epub").ISBN)
}
