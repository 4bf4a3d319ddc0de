package metadata

import (
	"path/filepath"
	"strings"
	"unicode"
)

// QueryFromFilename derives a cleaned fallback query from a document's file
// name: the extension is dropped and separator characters collapse to single
// spaces. Hyphens and apostrophes survive since they are usually part of the
// title.
func QueryFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'' {
			return r
		}
		return ' '
	}, stem)

	return strings.Join(strings.Fields(cleaned), " ")
}
