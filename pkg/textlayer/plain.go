package textlayer

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
)

// plainPageBytes approximates one printed page of plain text. Plain files
// have no page structure, so the leading window is measured in bytes.
const plainPageBytes = 2048

// PlainTextSource treats a plain text file as its own text layer.
type PlainTextSource struct{}

// Text returns up to pages worth of leading bytes from the file.
func (s *PlainTextSource) Text(_ context.Context, path string, pages int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errcodes.TextLayerUnavailable(path)
	}
	defer f.Close()

	buf := make([]byte, pages*plainPageBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", errors.WithStack(err)
	}

	text := string(buf[:n])
	if strings.TrimSpace(text) == "" {
		return "", errcodes.TextLayerUnavailable(path)
	}

	return text, nil
}
