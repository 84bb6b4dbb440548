package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grans-cli/grans/internal/model"
)

func TestFilterDocumentsByPerson_MatchesCreatorOrAttendee(t *testing.T) {
	// Given: three documents, matching the substring in different fields
	docs := []*model.Document{
		{ID: "a", People: model.DocumentPeople{Creator: &model.Person{Name: "Ada Lovelace"}}},
		{ID: "b", People: model.DocumentPeople{Attendees: []model.Person{{Email: "grace@example.com"}}}},
		{ID: "c", People: model.DocumentPeople{Creator: &model.Person{Name: "Nobody"}}},
	}

	// When: filtering by a substring that matches the first two
	got := filterDocumentsByPerson(docs, "a")

	// Then: both documents with a matching creator/attendee are kept
	ids := make([]string, len(got))
	for i, d := range got {
		ids[i] = d.ID
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestPersonFieldsMatch_CaseInsensitive(t *testing.T) {
	// Given: a person with mixed-case name and email
	p := model.Person{Name: "Ada Lovelace", Email: "Ada@Example.com"}

	// Then: matching is case-insensitive on either field
	assert.True(t, personFieldsMatch(p, "lovelace"))
	assert.True(t, personFieldsMatch(p, "ada@example"))
	assert.False(t, personFieldsMatch(p, "grace"))
}
