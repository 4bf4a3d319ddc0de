package database

import (
	"os"
	"path/filepath"
)

// MissingFiles returns the identities whose recorded file path does not
// resolve to an existing regular file under root, in insertion order. It
// never mutates the database: orphaned records are reported for the operator
// to confirm removal, not deleted automatically.
func (db *Database) MissingFiles(root string) []string {
	var missing []string
	for _, key := range db.order {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(key)))
		if err != nil || info.IsDir() {
			missing = append(missing, key)
		}
	}
	return missing
}
