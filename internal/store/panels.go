package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
)

// UpsertPanel inserts or replaces a panel row, keeping panel_fts in sync
// via delete-then-insert.
func (s *Store) UpsertPanel(p *model.Panel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var contentJSON sql.NullString
	if p.ContentJSON != nil {
		contentJSON = sql.NullString{String: string(p.ContentJSON), Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return grerrors.StoreIOError("failed to begin panel upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO panels (id, document_id, title, content_markdown, content_json, template_slug, created_at, deleted_at, chat_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, content_markdown=excluded.content_markdown, content_json=excluded.content_json,
			template_slug=excluded.template_slug, deleted_at=excluded.deleted_at, chat_url=excluded.chat_url
	`, p.ID, p.DocumentID, p.Title, p.ContentMarkdown, contentJSON, p.TemplateSlug, formatTime(p.CreatedAt), formatTimePtr(p.DeletedAt), p.ChatURL)
	if err != nil {
		return grerrors.StoreIOError("failed to upsert panel", err)
	}

	if _, err := tx.Exec(`DELETE FROM panel_fts WHERE panel_id = ?`, p.ID); err != nil {
		return grerrors.StoreIOError("failed to clear panel FTS entry", err)
	}
	if !p.IsDeleted() && p.ContentMarkdown != "" {
		if _, err := tx.Exec(`INSERT INTO panel_fts (document_id, panel_id, text) VALUES (?, ?, ?)`, p.DocumentID, p.ID, p.ContentMarkdown); err != nil {
			return grerrors.StoreIOError("failed to index panel content", err)
		}
	}

	return tx.Commit()
}

func scanPanel(row interface{ Scan(...any) error }) (*model.Panel, error) {
	var (
		id, documentID, title, contentMarkdown, templateSlug, createdAt, chatURL string
		contentJSON, deletedAt                                                   sql.NullString
	)
	if err := row.Scan(&id, &documentID, &title, &contentMarkdown, &contentJSON, &templateSlug, &createdAt, &deletedAt, &chatURL); err != nil {
		return nil, err
	}
	p := &model.Panel{ID: id, DocumentID: documentID, Title: title, ContentMarkdown: contentMarkdown, TemplateSlug: templateSlug, ChatURL: chatURL}
	if contentJSON.Valid {
		p.ContentJSON = []byte(contentJSON.String)
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing panel created_at: %w", err)
	}
	if p.DeletedAt, err = parseTimePtr(deletedAt); err != nil {
		return nil, fmt.Errorf("parsing panel deleted_at: %w", err)
	}
	return p, nil
}

const panelColumns = `id, document_id, title, content_markdown, content_json, template_slug, created_at, deleted_at, chat_url`

// ListPanels returns panels for a document, excluding soft-deleted rows
// unless includeDeleted is true.
func (s *Store) ListPanels(documentID string, includeDeleted bool) ([]*model.Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + panelColumns + ` FROM panels WHERE document_id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.Query(query, documentID)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to list panels", err)
	}
	defer rows.Close()

	var out []*model.Panel
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, grerrors.StoreIOError("failed to scan panel row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPanel fetches a single panel by ID.
func (s *Store) GetPanel(id string, includeDeleted bool) (*model.Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + panelColumns + ` FROM panels WHERE id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	p, err := scanPanel(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, grerrors.NotFoundError(fmt.Sprintf("panel %s not found", id))
	}
	if err != nil {
		return nil, grerrors.StoreIOError("failed to read panel", err)
	}
	return p, nil
}

// SoftDeletePanel marks a panel deleted and removes it from panel_fts.
func (s *Store) SoftDeletePanel(id string, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return grerrors.StoreIOError("failed to begin panel soft delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE panels SET deleted_at = ? WHERE id = ?`, formatTime(deletedAt), id); err != nil {
		return grerrors.StoreIOError("failed to soft-delete panel", err)
	}
	if _, err := tx.Exec(`DELETE FROM panel_fts WHERE panel_id = ?`, id); err != nil {
		return grerrors.StoreIOError("failed to remove panel FTS entry", err)
	}
	return tx.Commit()
}
