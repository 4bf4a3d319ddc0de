package pipeline

import (
	"fmt"
	"strings"

	"github.com/shelfsync/shelfsync/pkg/database"
	"github.com/shelfsync/shelfsync/pkg/models"
)

// Report summarizes the state of a database after a pass: how many documents
// sit in each status, and which paths need operator attention. A pass never
// fails the run because some documents lack enrichment; the report is how
// those documents surface.
type Report struct {
	Counts         map[string]int
	NeedsAttention []string
}

// BuildReport derives a report from a database.
func BuildReport(db *database.Database) *Report {
	report := &Report{
		Counts: map[string]int{},
	}

	for _, doc := range db.Documents() {
		status := doc.Status()
		report.Counts[status]++
		if status == models.StatusNeedsAttention {
			report.NeedsAttention = append(report.NeedsAttention, doc.Path())
		}
	}

	return report
}

// String renders the report for the command output.
func (r *Report) String() string {
	var b strings.Builder

	total := 0
	for _, status := range []string{
		models.StatusNew,
		models.StatusIdentified,
		models.StatusEnriched,
		models.StatusComplete,
		models.StatusNeedsAttention,
	} {
		count := r.Counts[status]
		total += count
		if count > 0 {
			fmt.Fprintf(&b, "%-16s %d\n", status, count)
		}
	}
	fmt.Fprintf(&b, "%-16s %d\n", "total", total)

	if len(r.NeedsAttention) > 0 {
		b.WriteString("\nneeds attention:\n")
		for _, path := range r.NeedsAttention {
			fmt.Fprintf(&b, "  %s\n", path)
		}
	}

	return b.String()
}
