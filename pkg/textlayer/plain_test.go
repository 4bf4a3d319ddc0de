package textlayer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/internal/testgen"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
)

func TestPlainText(t *testing.T) {
	dir := testgen.TempLibraryDir(t)
	path := testgen.WriteFile(t, dir, "notes.txt", []byte("ISBN 978-0-14-044913-6 appears early."))

	src := &PlainTextSource{}
	text, err := src.Text(context.Background(), path, 1)
	require.NoError(t, err)
	assert.Contains(t, text, "978-0-14-044913-6")
}

func TestPlainTextWindowBoundsBytes(t *testing.T) {
	dir := testgen.TempLibraryDir(t)
	content := append(bytes.Repeat([]byte("x"), plainPageBytes), []byte("PAST THE WINDOW")...)
	path := testgen.WriteFile(t, dir, "long.txt", content)

	src := &PlainTextSource{}
	text, err := src.Text(context.Background(), path, 1)
	require.NoError(t, err)
	assert.NotContains(t, text, "PAST THE WINDOW")
}

func TestPlainTextEmptyFile(t *testing.T) {
	dir := testgen.TempLibraryDir(t)
	path := testgen.WriteFile(t, dir, "empty.txt", []byte("   \n  "))

	src := &PlainTextSource{}
	_, err := src.Text(context.Background(), path, 1)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeTextLayerUnavailable))
}

func TestPlainTextMissingFile(t *testing.T) {
	src := &PlainTextSource{}
	_, err := src.Text(context.Background(), "/does/not/exist.txt", 1)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeTextLayerUnavailable))
}
