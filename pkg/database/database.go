package database

import (
	"bytes"
	stdjson "encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shelfsync/shelfsync/pkg/models"
)

// Default database filenames, resolved relative to the library root. The
// canonical file is authoritative; the staging file holds records under
// construction between a scan and a finalize.
const (
	CanonicalFilename = ".metadata.json"
	StagingFilename   = ".metadata-imported.json"
)

// Database is a mapping from document identity (library-relative path) to
// document record. Keys are unique by construction; insertion order is
// irrelevant for correctness but preserved on disk so operators editing the
// file by hand see records where they left them.
type Database struct {
	docs  map[string]*models.Document
	order []string
}

// New returns an empty database.
func New() *Database {
	return &Database{
		docs: map[string]*models.Document{},
	}
}

// Load reads a database file. A missing file is an error: commands that
// tolerate absence check with Exists first.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	db := New()
	if err := db.UnmarshalJSON(data); err != nil {
		return nil, errors.Wrapf(err, "failed to parse database %s", path)
	}

	return db, nil
}

// Exists reports whether a database file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Save writes the database to path atomically: encode to a temporary file in
// the same directory, then rename over the destination. A crash mid-save
// never leaves a partially written database.
func (db *Database) Save(path string) error {
	data, err := db.encode(true)
	if err != nil {
		return errors.WithStack(err)
	}

	tmp := path + ".tmp"
	// Database files are meant to be opened and edited by operators.
	if err := os.WriteFile(tmp, data, 0644); err != nil { //nolint:gosec
		return errors.WithStack(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}

	return nil
}

// Len returns the number of records.
func (db *Database) Len() int {
	return len(db.docs)
}

// Has reports whether an identity is present.
func (db *Database) Has(path string) bool {
	_, ok := db.docs[path]
	return ok
}

// Get returns the record for an identity, or nil.
func (db *Database) Get(path string) *models.Document {
	return db.docs[path]
}

// Put inserts or replaces a record keyed by its identity. First insertion
// fixes the record's position in the on-disk order.
func (db *Database) Put(doc *models.Document) {
	key := doc.Path()
	if _, ok := db.docs[key]; !ok {
		db.order = append(db.order, key)
	}
	db.docs[key] = doc
}

// Delete removes a record. It returns true if the identity was present.
func (db *Database) Delete(path string) bool {
	if _, ok := db.docs[path]; !ok {
		return false
	}
	delete(db.docs, path)
	for i, key := range db.order {
		if key == path {
			db.order = append(db.order[:i], db.order[i+1:]...)
			break
		}
	}
	return true
}

// Paths returns all identities in insertion order.
func (db *Database) Paths() []string {
	return append([]string(nil), db.order...)
}

// Documents returns all records in insertion order.
func (db *Database) Documents() []*models.Document {
	docs := make([]*models.Document, 0, len(db.order))
	for _, key := range db.order {
		docs = append(docs, db.docs[key])
	}
	return docs
}

// Clone returns a deep copy of the database.
func (db *Database) Clone() *Database {
	c := New()
	for _, doc := range db.Documents() {
		c.Put(doc.Clone())
	}
	return c
}

// MarshalJSON encodes the database as a JSON object in insertion order.
func (db *Database) MarshalJSON() ([]byte, error) {
	return db.encode(false)
}

func (db *Database) encode(indent bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range db.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if indent {
			buf.WriteString("\n  ")
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(": ")

		var doc []byte
		if indent {
			doc, err = json.MarshalIndent(db.docs[key], "  ", "  ")
		} else {
			doc, err = json.Marshal(db.docs[key])
		}
		if err != nil {
			return nil, err
		}
		buf.Write(doc)
	}
	if indent && len(db.order) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	if indent {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order and rejecting
// duplicate identities and records whose key disagrees with their file path.
// The walk runs on the standard library decoder, which exposes the token
// stream the key order has to be recovered from.
func (db *Database) UnmarshalJSON(data []byte) error {
	db.docs = map[string]*models.Document{}
	db.order = nil

	dec := stdjson.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return errors.WithStack(err)
	}
	if delim, ok := tok.(stdjson.Delim); !ok || delim != '{' {
		return errors.New("database must be a JSON object keyed by document path")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.WithStack(err)
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("invalid database key")
		}
		if _, exists := db.docs[key]; exists {
			return errors.Errorf("duplicate document identity %q", key)
		}

		doc := &models.Document{}
		if err := dec.Decode(doc); err != nil {
			return errors.Wrapf(err, "failed to decode record %q", key)
		}
		if doc.File.Path == "" {
			doc.File.Path = key
		} else if doc.File.Path != key {
			return errors.Errorf("record %q has mismatched file path %q", key, doc.File.Path)
		}

		db.order = append(db.order, key)
		db.docs[key] = doc
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return errors.WithStack(err)
	}

	// A hand-edited file with content past the object is corrupt, not a
	// database plus extras.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after database object")
	}

	return nil
}

// Init creates an empty canonical database at path. It fails if the file
// already exists or the parent directory is missing.
func Init(path string) error {
	if Exists(path) {
		return errors.Errorf("database already exists: %s", path)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Errorf("library root does not exist: %s", filepath.Dir(path))
		}
		return errors.WithStack(err)
	}
	return New().Save(path)
}
