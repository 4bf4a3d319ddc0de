package database

// Merge reconciles a staging database into a canonical one and returns the
// new canonical database. For an identity present in both, the staging
// record's non-absent fields overwrite the canonical record's fields one by
// one; fields absent in staging leave the canonical value untouched. There is
// no record-level conflict state by construction. Identities present only in
// canonical are never deleted, so re-merging the same staging snapshot is a
// no-op.
func Merge(canonical, staging *Database) *Database {
	merged := canonical.Clone()

	for _, doc := range staging.Documents() {
		if existing := merged.Get(doc.Path()); existing != nil {
			existing.Overlay(doc)
		} else {
			merged.Put(doc.Clone())
		}
	}

	return merged
}
