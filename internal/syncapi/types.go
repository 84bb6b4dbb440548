package syncapi

import (
	"encoding/json"
	"time"

	"github.com/grans-cli/grans/internal/model"
)

// extractExtras re-parses raw into a field map and strips the keys the
// domain model already captures explicitly, so round-tripping a document
// never silently drops upstream data.
func extractExtras(raw json.RawMessage, known ...string) model.Extras {
	if len(raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	for _, k := range known {
		delete(fields, k)
	}
	if len(fields) == 0 {
		return nil
	}
	return model.Extras(fields)
}

var documentKnownFields = []string{
	"id", "title", "created_at", "updated_at", "deleted_at",
	"notes_plain", "notes_markdown", "summary", "people", "calendar",
}

type apiPerson struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
}

func (p apiPerson) toModel() model.Person {
	return model.Person{ID: p.ID, Name: p.Name, Email: p.Email, Company: p.Company, JobTitle: p.JobTitle}
}

type apiCalendarEvent struct {
	ID         string      `json:"id"`
	Summary    string      `json:"summary"`
	StartTime  time.Time   `json:"start_time"`
	EndTime    time.Time   `json:"end_time"`
	CalendarID string      `json:"calendar_id"`
	Attendees  []apiPerson `json:"attendees,omitempty"`
}

func (e apiCalendarEvent) toModel() model.CalendarEvent {
	out := model.CalendarEvent{
		ID: e.ID, Summary: e.Summary, StartTime: e.StartTime, EndTime: e.EndTime, CalendarID: e.CalendarID,
	}
	for _, a := range e.Attendees {
		out.Attendees = append(out.Attendees, a.toModel())
	}
	return out
}

type apiDocumentPeople struct {
	Creator   *apiPerson  `json:"creator,omitempty"`
	Attendees []apiPerson `json:"attendees,omitempty"`
}

type apiDocument struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	DeletedAt     *time.Time        `json:"deleted_at,omitempty"`
	NotesPlain    string            `json:"notes_plain"`
	NotesMarkdown string            `json:"notes_markdown"`
	Summary       string            `json:"summary,omitempty"`
	People        apiDocumentPeople `json:"people,omitempty"`
	Calendar      *apiCalendarEvent `json:"calendar,omitempty"`
}

// toModel converts the typed fields into a Document, preserving any
// upstream field this struct doesn't model under Extras. raw is the
// undecoded JSON this value was parsed from.
func (d apiDocument) toModel(raw json.RawMessage) *model.Document {
	out := &model.Document{
		ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt, DeletedAt: d.DeletedAt,
		NotesPlain: d.NotesPlain, NotesMarkdown: d.NotesMarkdown, Summary: d.Summary,
		Extras: extractExtras(raw, documentKnownFields...),
	}
	if d.People.Creator != nil {
		c := d.People.Creator.toModel()
		out.People.Creator = &c
	}
	for _, a := range d.People.Attendees {
		out.People.Attendees = append(out.People.Attendees, a.toModel())
	}
	if d.Calendar != nil {
		c := d.Calendar.toModel()
		out.Calendar = &c
	}
	return out
}

type apiTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Category  string    `json:"category,omitempty"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
}

var templateKnownFields = []string{"id", "name", "slug", "category", "is_system", "created_at"}

func (t apiTemplate) toModel(raw json.RawMessage) *model.Template {
	return &model.Template{
		ID: t.ID, Name: t.Name, Slug: t.Slug, Category: t.Category, IsSystem: t.IsSystem, CreatedAt: t.CreatedAt,
		Extras: extractExtras(raw, templateKnownFields...),
	}
}

type apiRecipe struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id"`
	Prompt     string    `json:"prompt"`
	CreatedAt  time.Time `json:"created_at"`
}

var recipeKnownFields = []string{"id", "template_id", "prompt", "created_at"}

func (r apiRecipe) toModel(raw json.RawMessage) *model.Recipe {
	return &model.Recipe{
		ID: r.ID, TemplateID: r.TemplateID, Prompt: r.Prompt, CreatedAt: r.CreatedAt,
		Extras: extractExtras(raw, recipeKnownFields...),
	}
}

type apiUtterance struct {
	ID             string    `json:"id"`
	StartTimestamp time.Time `json:"start_timestamp"`
	EndTimestamp   time.Time `json:"end_timestamp"`
	Text           string    `json:"text"`
	Source         string    `json:"source,omitempty"`
	Final          bool      `json:"final"`
}

type apiPanel struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	ContentMarkdown string          `json:"content_markdown"`
	ContentJSON     json.RawMessage `json:"content_json,omitempty"`
	TemplateSlug    string          `json:"template_slug,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ChatURL         string          `json:"chat_url,omitempty"`
}

func (p apiPanel) toModel(documentID string) *model.Panel {
	return &model.Panel{
		ID: p.ID, DocumentID: documentID, Title: p.Title, ContentMarkdown: p.ContentMarkdown,
		ContentJSON: p.ContentJSON, TemplateSlug: p.TemplateSlug, CreatedAt: p.CreatedAt, ChatURL: p.ChatURL,
	}
}

// request bodies mirror the upstream API's empty-object-by-default convention.
type getDocumentsRequest struct {
	ID string `json:"id,omitempty"`
}

// getDocumentsResponse keeps each document as raw JSON so callers can
// recover the fields apiDocument doesn't model into Extras.
type getDocumentsResponse struct {
	Docs []json.RawMessage `json:"docs"`
}

type refreshCalendarEventsResponse struct {
	Results *struct {
		Events []json.RawMessage `json:"events"`
	} `json:"results,omitempty"`
}

type getRecipesResponse struct {
	Recipes []json.RawMessage `json:"recipes"`
}

type getTranscriptRequest struct {
	DocumentID string `json:"document_id"`
}

type getDocumentPanelsRequest struct {
	DocumentID string `json:"document_id"`
}
