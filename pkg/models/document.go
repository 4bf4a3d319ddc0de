package models

import (
	"strings"
	"time"
)

// Document statuses, derived from field presence rather than stored, so they
// can never drift out of sync with the record.
const (
	StatusNew            = "new"
	StatusIdentified     = "identified"
	StatusEnriched       = "enriched"
	StatusComplete       = "complete"
	StatusNeedsAttention = "needs-attention"
)

// FileInfo describes the on-disk file backing a document record.
type FileInfo struct {
	// Path is relative to the library root, slash-separated, and doubles as
	// the record's identity within a database.
	Path string `json:"path"`
	// Kind is the lowercase file extension without the leading dot.
	Kind string `json:"kind"`
	Size int64  `json:"size"`
}

// Document is the unit of the metadata database. Optional fields are absent
// (zero) until the corresponding pipeline stage populates them; stages are
// additive and never clear a previously set field.
type Document struct {
	Added      time.Time `json:"added"`
	File       FileInfo  `json:"file"`
	Categories []string  `json:"categories,omitempty"`

	// ISBN is set by the identify pass once a candidate passes its checksum.
	ISBN string `json:"isbn,omitempty"`

	// Descriptive metadata, set by the retrieve pass or an operator edit.
	Title     string   `json:"title,omitempty"`
	Subtitle  string   `json:"subtitle,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	Year      string   `json:"year,omitempty"`
	Language  string   `json:"language,omitempty"`
	Series    string   `json:"series,omitempty"`

	// Review marks the record as needing operator attention and records why.
	// It is only ever set by a failed enrichment, and only cleared by an
	// operator or a later successful re-run.
	Review string `json:"review,omitempty"`

	// Query records the last lookup query sent for this record. Stage-only
	// bookkeeping: the clean pass strips it before merge.
	Query string `json:"query,omitempty"`
}

// Path returns the document's identity.
func (d *Document) Path() string {
	return d.File.Path
}

// Status derives the document's pipeline status from field presence.
func (d *Document) Status() string {
	switch {
	case d.Review != "":
		return StatusNeedsAttention
	case d.ISBN != "" && d.Title != "":
		return StatusComplete
	case d.ISBN != "":
		return StatusIdentified
	case d.Title != "":
		return StatusEnriched
	default:
		return StatusNew
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	if d.Categories != nil {
		c.Categories = append([]string(nil), d.Categories...)
	}
	if d.Authors != nil {
		c.Authors = append([]string(nil), d.Authors...)
	}
	return &c
}

// Overlay applies the non-absent fields of o on top of d, field by field.
// This is the merge precedence order: the overlay (staging) wins per field,
// absent overlay fields leave d untouched. Added is immutable once set, and
// File is replaced as a unit since its parts describe one stat result.
func (d *Document) Overlay(o *Document) {
	if d.Added.IsZero() && !o.Added.IsZero() {
		d.Added = o.Added
	}
	if o.File.Path != "" {
		d.File = o.File
	}
	if o.Categories != nil {
		d.Categories = append([]string(nil), o.Categories...)
	}
	if o.ISBN != "" {
		d.ISBN = o.ISBN
	}
	if o.Title != "" {
		d.Title = o.Title
	}
	if o.Subtitle != "" {
		d.Subtitle = o.Subtitle
	}
	if o.Authors != nil {
		d.Authors = append([]string(nil), o.Authors...)
	}
	if o.Publisher != "" {
		d.Publisher = o.Publisher
	}
	if o.Year != "" {
		d.Year = o.Year
	}
	if o.Language != "" {
		d.Language = o.Language
	}
	if o.Series != "" {
		d.Series = o.Series
	}
	if o.Review != "" {
		d.Review = o.Review
	}
}

// Equal reports whether two documents have identical field values. Used to
// verify merge idempotence in tests and to skip no-op writes.
func (d *Document) Equal(o *Document) bool {
	return d.Added.Equal(o.Added) &&
		d.File == o.File &&
		strings.Join(d.Categories, "\x00") == strings.Join(o.Categories, "\x00") &&
		d.ISBN == o.ISBN &&
		d.Title == o.Title &&
		d.Subtitle == o.Subtitle &&
		strings.Join(d.Authors, "\x00") == strings.Join(o.Authors, "\x00") &&
		d.Publisher == o.Publisher &&
		d.Year == o.Year &&
		d.Language == o.Language &&
		d.Series == o.Series &&
		d.Review == o.Review &&
		d.Query == o.Query
}
