// Package cleaner normalizes a staging database into canonical shape before
// merge: fields that fail their own validity predicate are dropped (the
// record is kept), stage-only bookkeeping is removed, and titles are tidied.
// The pass is idempotent: cleaning twice equals cleaning once.
package cleaner

import (
	"context"
	"strings"
	"unicode"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfsync/shelfsync/pkg/database"
	"github.com/shelfsync/shelfsync/pkg/identifiers"
	"github.com/shelfsync/shelfsync/pkg/models"
)

// Result summarizes a clean pass.
type Result struct {
	Cleaned       int // records touched
	FieldsDropped int // invalid fields removed
}

// Clean normalizes every record in the staging database in place.
func Clean(ctx context.Context, staging *database.Database) *Result {
	log := logger.FromContext(ctx)
	result := &Result{}

	for _, doc := range staging.Documents() {
		dropped := validate(doc)
		if dropped > 0 {
			log.Warn("dropped invalid fields", logger.Data{"path": doc.Path(), "count": dropped})
			result.FieldsDropped += dropped
		}

		consolidate(doc)

		// Stage-only bookkeeping never reaches the canonical database.
		doc.Query = ""

		result.Cleaned++
	}

	return result
}

// validate drops optional fields that fail their validity predicate, such as
// a hand-edited identifier that no longer passes its checksum, and returns
// how many were dropped.
func validate(doc *models.Document) int {
	dropped := 0

	if doc.ISBN != "" {
		normalized := identifiers.Normalize(doc.ISBN)
		if !identifiers.Valid(normalized) {
			doc.ISBN = ""
			dropped++
		} else if normalized != doc.ISBN {
			doc.ISBN = normalized
		}
	}

	for _, field := range []*string{
		&doc.Title, &doc.Subtitle, &doc.Publisher, &doc.Year, &doc.Language, &doc.Series, &doc.Review,
	} {
		trimmed := strings.TrimSpace(*field)
		if trimmed != *field {
			*field = trimmed
		}
	}

	if doc.Authors != nil {
		authors := doc.Authors[:0]
		for _, author := range doc.Authors {
			if a := strings.TrimSpace(author); a != "" {
				authors = append(authors, a)
			}
		}
		if len(authors) == 0 {
			doc.Authors = nil
			dropped++
		} else {
			doc.Authors = authors
		}
	}

	return dropped
}

// consolidate tidies descriptive fields the way operators expect to read
// them: a "Title: Subtitle" split when no subtitle is set, a bare four-digit
// year, typographic apostrophes, and title case when the language is unset.
func consolidate(doc *models.Document) {
	if doc.Subtitle == "" {
		if i := strings.Index(doc.Title, ":"); i >= 0 {
			title, subtitle := doc.Title[:i], doc.Title[i+1:]
			doc.Title = strings.TrimRight(title, " ")
			doc.Subtitle = strings.TrimLeft(subtitle, " ")
		}
	}

	if doc.Language == "" {
		doc.Title = titleCase(doc.Title)
		doc.Subtitle = titleCase(doc.Subtitle)
	}

	doc.Title = typographic(doc.Title)
	doc.Subtitle = typographic(doc.Subtitle)
	doc.Series = typographic(doc.Series)
	doc.Publisher = typographic(doc.Publisher)
	for i, author := range doc.Authors {
		doc.Authors[i] = typographic(author)
	}

	if len(doc.Year) > 4 {
		doc.Year = doc.Year[:4]
	}
}

func typographic(s string) string {
	return strings.ReplaceAll(s, "'", "’")
}

// smallWords stay lowercase inside a title (never as the first word).
var smallWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "but": {}, "by": {},
	"for": {}, "in": {}, "of": {}, "on": {}, "or": {}, "the": {}, "to": {},
}

// titleCase capitalizes the first letter of each word, keeping common small
// words lowercase past the first position. Words with existing interior
// capitals are left alone.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		lower := strings.ToLower(word)
		if i > 0 {
			if _, small := smallWords[lower]; small {
				words[i] = lower
				continue
			}
		}
		if word != lower && word != capitalize(lower) {
			// Mixed case like "McCarthy" or "USA": trust the source.
			continue
		}
		words[i] = capitalize(lower)
	}
	return strings.Join(words, " ")
}

func capitalize(word string) string {
	runes := []rune(word)
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}
