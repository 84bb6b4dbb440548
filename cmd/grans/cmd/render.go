package cmd

import (
	"time"

	"github.com/grans-cli/grans/internal/model"
)

// documentSummary is the stable JSON shape emitted for a document by list,
// search (keyword mode), recent, today, and with.
type documentSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	Deleted   bool     `json:"deleted,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
}

func toDocumentSummary(doc *model.Document) documentSummary {
	s := documentSummary{
		ID:        doc.ID,
		Title:     doc.Title,
		CreatedAt: formatTimestamp(doc.CreatedAt),
		UpdatedAt: formatTimestamp(doc.UpdatedAt),
		Deleted:   doc.IsDeleted(),
	}
	for _, p := range doc.People.Attendees {
		s.Attendees = append(s.Attendees, p.Name)
	}
	return s
}

// formatTimestamp renders t in local time, or UTC when --utc is set.
func formatTimestamp(t time.Time) string {
	if flags.utc {
		return t.UTC().Format(time.RFC3339)
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func documentTableRows(docs []*model.Document) [][]string {
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{d.ID, d.Title, formatTimestamp(d.CreatedAt)})
	}
	return rows
}
