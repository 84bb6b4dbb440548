// Package model defines the entities persisted in the local archive store:
// documents, transcript utterances, panels, people, calendar events, chunks,
// embeddings, and the sync bookkeeping tables that back the document-API and
// Dropbox sync protocols.
package model

import (
	"encoding/json"
	"time"
)

// Extras preserves upstream fields the core doesn't model explicitly. It
// round-trips through JSON so a document read, re-serialized, and written
// back never drops data the upstream API sent.
type Extras map[string]json.RawMessage

// Person is a workspace contact: creator, attendee, or calendar participant.
type Person struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
}

// CalendarEvent is the calendar entry a document was created from, if any.
type CalendarEvent struct {
	ID         string    `json:"id"`
	Summary    string    `json:"summary"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	CalendarID string    `json:"calendar_id"`
	Attendees  []Person  `json:"attendees,omitempty"`
}

// DocumentPeople is the embedded creator/attendees object on a Document.
type DocumentPeople struct {
	Creator   *Person  `json:"creator,omitempty"`
	Attendees []Person `json:"attendees,omitempty"`
}

// Document is a meeting record: the root entity that transcripts, panels,
// and notes attach to.
type Document struct {
	ID            string
	Title         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
	NotesPlain    string
	NotesMarkdown string
	Summary       string
	People        DocumentPeople
	Calendar      *CalendarEvent
	Extras        Extras
}

// IsDeleted reports whether the document is soft-deleted.
func (d *Document) IsDeleted() bool {
	return d.DeletedAt != nil
}

// UtteranceSource tags which input stream an utterance came from. A nil/empty
// source marks a pre-migration row that predates the field's introduction.
type UtteranceSource string

const (
	UtteranceSourceMicrophone UtteranceSource = "microphone"
	UtteranceSourceSystem     UtteranceSource = "system"
)

// SpeakerLabel returns the chunker's display prefix for this source:
// "[You] " for microphone, "[Other] " for system, "" for everything else
// (including the empty pre-migration source).
func (s UtteranceSource) SpeakerLabel() string {
	switch s {
	case UtteranceSourceMicrophone:
		return "[You] "
	case UtteranceSourceSystem:
		return "[Other] "
	default:
		return ""
	}
}

// TranscriptUtterance is an atomic speech segment belonging to a document's
// transcript.
type TranscriptUtterance struct {
	ID             string
	DocumentID     string
	StartTimestamp time.Time
	EndTimestamp   time.Time
	Text           string
	Source         UtteranceSource
	Final          bool
	// APISnapshot is the raw upstream payload with the "text" field redacted
	// to the literal string "[stored]".
	APISnapshot json.RawMessage
}

// Panel is an AI-generated section of structured notes attached to a
// document.
type Panel struct {
	ID               string
	DocumentID       string
	Title            string
	ContentMarkdown  string
	ContentJSON      json.RawMessage
	TemplateSlug     string
	CreatedAt        time.Time
	DeletedAt        *time.Time
	ChatURL          string
}

// IsDeleted reports whether the panel is soft-deleted.
func (p *Panel) IsDeleted() bool {
	return p.DeletedAt != nil
}

// SourceType tags the origin of a Chunk.
type SourceType string

const (
	SourceTypeTranscriptWindow SourceType = "transcript_window"
	SourceTypePanelSection     SourceType = "panel_section"
	SourceTypeNotesParagraph   SourceType = "notes_paragraph"
)

// Chunk is a unit of text slated for embedding.
type Chunk struct {
	RowID       int64
	SourceType  SourceType
	SourceID    string
	DocumentID  string
	ContentHash string
	Text        string
	Metadata    json.RawMessage
	CreatedAt   time.Time
}

// TranscriptWindowMetadata is the metadata JSON shape for a
// SourceTypeTranscriptWindow chunk.
type TranscriptWindowMetadata struct {
	WindowStartIdx int        `json:"window_start_idx"`
	WindowEndIdx   int        `json:"window_end_idx"`
	StartTimestamp *time.Time `json:"start_timestamp,omitempty"`
	EndTimestamp   *time.Time `json:"end_timestamp,omitempty"`
}

// PanelSectionMetadata is the metadata JSON shape for a
// SourceTypePanelSection chunk.
type PanelSectionMetadata struct {
	PanelID        string `json:"panel_id"`
	SectionHeading string `json:"section_heading,omitempty"`
	SectionIdx     int    `json:"section_idx"`
}

// NotesParagraphMetadata is the metadata JSON shape for a
// SourceTypeNotesParagraph chunk.
type NotesParagraphMetadata struct {
	ParagraphIdx int `json:"paragraph_idx"`
}

// Embedding is a float32 vector bound to exactly one chunk.
type Embedding struct {
	ChunkID int64
	Vector  []float32
}

// Keys of the embedding_metadata side table.
const (
	EmbeddingMetaModelName = "model_name"
	EmbeddingMetaDimension = "embedding_dim"
	EmbeddingMetaMaxLength = "max_length"
)

// SyncLogStatus is the closed enumeration for transcript-sync-log and
// panel-sync-log entries.
type SyncLogStatus string

const (
	SyncLogNotFound SyncLogStatus = "not_found"
	SyncLogError    SyncLogStatus = "error"
)

// SyncLogEntry memoizes a document-level sync failure so later runs skip it
// unless retried.
type SyncLogEntry struct {
	DocumentID    string
	Status        SyncLogStatus
	LastAttempted time.Time
	AttemptCount  int
}

// Template is an upstream panel template.
type Template struct {
	ID        string
	Name      string
	Slug      string
	Category  string
	IsSystem  bool
	CreatedAt time.Time
	Extras    Extras
}

// Recipe is a saved prompt associated with a template.
type Recipe struct {
	ID         string
	TemplateID string
	Prompt     string
	CreatedAt  time.Time
	Extras     Extras
}
