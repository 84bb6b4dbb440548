package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grans-cli/grans/internal/model"
)

func TestFormatTimestamp_Local_UsesLocalClock(t *testing.T) {
	// Given: --utc is not set
	flags.utc = false
	ts := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)

	// When: formatting
	got := formatTimestamp(ts)

	// Then: it uses the local-time layout, not RFC3339
	assert.Equal(t, ts.Local().Format("2006-01-02 15:04:05"), got)
}

func TestFormatTimestamp_UTC_UsesRFC3339(t *testing.T) {
	// Given: --utc is set
	flags.utc = true
	defer func() { flags.utc = false }()
	ts := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)

	// When: formatting
	got := formatTimestamp(ts)

	// Then: it uses RFC3339 in UTC
	assert.Equal(t, "2026-03-05T09:30:00Z", got)
}

func TestToDocumentSummary_CollectsAttendeeNames(t *testing.T) {
	// Given: a document with two attendees
	doc := &model.Document{
		ID:    "doc-1",
		Title: "Weekly sync",
		People: model.DocumentPeople{
			Attendees: []model.Person{{Name: "Ada"}, {Name: "Grace"}},
		},
	}

	// When: converting to a summary
	s := toDocumentSummary(doc)

	// Then: attendee names are carried over in order
	assert.Equal(t, []string{"Ada", "Grace"}, s.Attendees)
	assert.Equal(t, "doc-1", s.ID)
	assert.Equal(t, "Weekly sync", s.Title)
}

func TestDocumentTableRows_OneRowPerDocument(t *testing.T) {
	// Given: two documents
	docs := []*model.Document{
		{ID: "a", Title: "First"},
		{ID: "b", Title: "Second"},
	}

	// When: building table rows
	rows := documentTableRows(docs)

	// Then: each row carries id, title, and a formatted timestamp
	assert.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0][0])
	assert.Equal(t, "Second", rows[1][1])
}
