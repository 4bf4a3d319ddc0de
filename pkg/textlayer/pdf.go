package textlayer

import (
	"context"
	"strings"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/single_threaded"
	"github.com/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
)

// defaultInstanceTimeout bounds how long a call waits for a pdfium instance
// when the caller's context has no deadline.
const defaultInstanceTimeout = 30 * time.Second

// PDFSource extracts the text layer of PDF documents through pdfium. A
// scanned PDF without embedded text yields an empty dump, which the caller
// sees as a text-layer-unavailable outcome.
type PDFSource struct {
	pool pdfium.Pool
}

// NewPDFSource initializes a single-threaded pdfium pool. Concurrent callers
// serialize on the pool, which keeps memory bounded on the import host.
func NewPDFSource() (*PDFSource, error) {
	return &PDFSource{
		pool: single_threaded.Init(single_threaded.Config{}),
	}, nil
}

// Text returns the concatenated text of the first pages of the PDF at path.
func (s *PDFSource) Text(ctx context.Context, path string, pages int) (string, error) {
	timeout := defaultInstanceTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	instance, err := s.pool.GetInstance(timeout)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer instance.Close() //nolint:errcheck

	doc, err := instance.OpenDocument(&requests.OpenDocument{FilePath: &path})
	if err != nil {
		return "", errcodes.TextLayerUnavailable(path)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document}) //nolint:errcheck

	count, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: doc.Document})
	if err != nil {
		return "", errors.WithStack(err)
	}
	if pages > count.PageCount {
		pages = count.PageCount
	}

	var b strings.Builder
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", errors.WithStack(err)
		}

		text, err := instance.GetPageText(&requests.GetPageText{
			Page: requests.Page{
				ByIndex: &requests.PageByIndex{
					Document: doc.Document,
					Index:    i,
				},
			},
		})
		if err != nil {
			// A single undecodable page doesn't invalidate the window.
			continue
		}
		b.WriteString(text.Text)
		b.WriteByte('\n')
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", errcodes.TextLayerUnavailable(path)
	}

	return b.String(), nil
}

// Close shuts the pdfium pool down.
func (s *PDFSource) Close() {
	s.pool.Close() //nolint:errcheck
}
