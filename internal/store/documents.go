package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertDocument inserts or replaces a document row, keeping notes_fts in
// sync with notes_plain via the FTS5 delete-then-insert pattern (external
// content virtual tables don't support UPDATE).
func (s *Store) UpsertDocument(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	peopleJSON, err := json.Marshal(doc.People)
	if err != nil {
		return grerrors.InternalError("failed to marshal document people", err)
	}
	var calendarJSON sql.NullString
	if doc.Calendar != nil {
		b, err := json.Marshal(doc.Calendar)
		if err != nil {
			return grerrors.InternalError("failed to marshal document calendar", err)
		}
		calendarJSON = sql.NullString{String: string(b), Valid: true}
	}
	extrasJSON, err := json.Marshal(doc.Extras)
	if err != nil {
		return grerrors.InternalError("failed to marshal document extras", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return grerrors.StoreIOError("failed to begin document upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO documents (id, title, created_at, updated_at, deleted_at, notes_plain, notes_markdown, summary, people_json, calendar_json, extras_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, updated_at=excluded.updated_at, deleted_at=excluded.deleted_at,
			notes_plain=excluded.notes_plain, notes_markdown=excluded.notes_markdown, summary=excluded.summary,
			people_json=excluded.people_json, calendar_json=excluded.calendar_json, extras_json=excluded.extras_json
	`,
		doc.ID, doc.Title, formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt), formatTimePtr(doc.DeletedAt),
		doc.NotesPlain, doc.NotesMarkdown, doc.Summary, string(peopleJSON), calendarJSON, string(extrasJSON),
	)
	if err != nil {
		return grerrors.StoreIOError("failed to upsert document", err)
	}

	if _, err := tx.Exec(`DELETE FROM notes_fts WHERE document_id = ?`, doc.ID); err != nil {
		return grerrors.StoreIOError("failed to clear notes FTS entry", err)
	}
	if !doc.IsDeleted() && doc.NotesPlain != "" {
		if _, err := tx.Exec(`INSERT INTO notes_fts (document_id, text) VALUES (?, ?)`, doc.ID, doc.NotesPlain); err != nil {
			return grerrors.StoreIOError("failed to index document notes", err)
		}
	}

	return tx.Commit()
}

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var (
		id, title, createdAt, updatedAt                         string
		notesPlain, notesMarkdown, summary, peopleJSON, extras  string
		deletedAt, calendarJSON                                 sql.NullString
	)
	if err := row.Scan(&id, &title, &createdAt, &updatedAt, &deletedAt, &notesPlain, &notesMarkdown, &summary, &peopleJSON, &calendarJSON, &extras); err != nil {
		return nil, err
	}

	doc := &model.Document{ID: id, Title: title, NotesPlain: notesPlain, NotesMarkdown: notesMarkdown, Summary: summary}
	var err error
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if doc.DeletedAt, err = parseTimePtr(deletedAt); err != nil {
		return nil, fmt.Errorf("parsing deleted_at: %w", err)
	}
	if err := json.Unmarshal([]byte(peopleJSON), &doc.People); err != nil {
		return nil, fmt.Errorf("parsing people_json: %w", err)
	}
	if calendarJSON.Valid {
		doc.Calendar = &model.CalendarEvent{}
		if err := json.Unmarshal([]byte(calendarJSON.String), doc.Calendar); err != nil {
			return nil, fmt.Errorf("parsing calendar_json: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(extras), &doc.Extras); err != nil {
		return nil, fmt.Errorf("parsing extras_json: %w", err)
	}
	return doc, nil
}

const documentColumns = `id, title, created_at, updated_at, deleted_at, notes_plain, notes_markdown, summary, people_json, calendar_json, extras_json`

// GetDocument fetches a document by ID. Soft-deleted documents are
// returned only when includeDeleted is true, matching the store-wide
// soft-delete query discipline.
func (s *Store) GetDocument(id string, includeDeleted bool) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	doc, err := scanDocument(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, grerrors.NotFoundError(fmt.Sprintf("document %s not found", id))
	}
	if err != nil {
		return nil, grerrors.StoreIOError("failed to read document", err)
	}
	return doc, nil
}

// ListDocuments returns documents ordered by updated_at descending,
// excluding soft-deleted rows unless includeDeleted is true. A non-nil
// since filters to documents updated at or after that instant.
func (s *Store) ListDocuments(includeDeleted bool, since *time.Time) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	var args []any
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	if since != nil {
		query += ` AND updated_at >= ?`
		args = append(args, formatTime(*since))
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to list documents", err)
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, grerrors.StoreIOError("failed to scan document row", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SoftDeleteDocument marks a document deleted without removing its row,
// and removes it from the notes FTS index so it stops surfacing in
// keyword search.
func (s *Store) SoftDeleteDocument(id string, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return grerrors.StoreIOError("failed to begin soft delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE documents SET deleted_at = ? WHERE id = ?`, formatTime(deletedAt), id); err != nil {
		return grerrors.StoreIOError("failed to soft-delete document", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes_fts WHERE document_id = ?`, id); err != nil {
		return grerrors.StoreIOError("failed to remove notes FTS entry", err)
	}
	return tx.Commit()
}
