package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
)

// UpsertTemplate inserts or replaces a template row.
func (s *Store) UpsertTemplate(t *model.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	extras, err := json.Marshal(t.Extras)
	if err != nil {
		return grerrors.InternalError("failed to marshal template extras", err)
	}
	isSystem := 0
	if t.IsSystem {
		isSystem = 1
	}

	_, err = s.db.Exec(`
		INSERT INTO templates (id, name, slug, category, is_system, created_at, extras_json) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, slug=excluded.slug, category=excluded.category, is_system=excluded.is_system, extras_json=excluded.extras_json
	`, t.ID, t.Name, t.Slug, t.Category, isSystem, formatTime(t.CreatedAt), string(extras))
	if err != nil {
		return grerrors.StoreIOError("failed to upsert template", err)
	}
	return nil
}

// ListTemplates returns every known template, ordered by name.
func (s *Store) ListTemplates() ([]*model.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, slug, category, is_system, created_at, extras_json FROM templates ORDER BY name ASC`)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to list templates", err)
	}
	defer rows.Close()

	var out []*model.Template
	for rows.Next() {
		t := &model.Template{}
		var isSystem int
		var createdAt, extras string
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Category, &isSystem, &createdAt, &extras); err != nil {
			return nil, grerrors.StoreIOError("failed to scan template row", err)
		}
		t.IsSystem = isSystem != 0
		var err error
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, grerrors.InternalError("failed to parse template created_at", err)
		}
		if err := json.Unmarshal([]byte(extras), &t.Extras); err != nil {
			return nil, grerrors.InternalError("failed to parse template extras", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertRecipe inserts or replaces a recipe row.
func (s *Store) UpsertRecipe(r *model.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	extras, err := json.Marshal(r.Extras)
	if err != nil {
		return grerrors.InternalError("failed to marshal recipe extras", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO recipes (id, template_id, prompt, created_at, extras_json) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET template_id=excluded.template_id, prompt=excluded.prompt, extras_json=excluded.extras_json
	`, r.ID, r.TemplateID, r.Prompt, formatTime(r.CreatedAt), string(extras))
	if err != nil {
		return grerrors.StoreIOError("failed to upsert recipe", err)
	}
	return nil
}

// GetRecipe fetches a recipe by ID.
func (s *Store) GetRecipe(id string) (*model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := &model.Recipe{}
	var createdAt, extras string
	err := s.db.QueryRow(`SELECT id, template_id, prompt, created_at, extras_json FROM recipes WHERE id = ?`, id).
		Scan(&r.ID, &r.TemplateID, &r.Prompt, &createdAt, &extras)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, grerrors.NotFoundError(fmt.Sprintf("recipe %s not found", id))
	}
	if err != nil {
		return nil, grerrors.StoreIOError("failed to read recipe", err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, grerrors.InternalError("failed to parse recipe created_at", err)
	}
	if err := json.Unmarshal([]byte(extras), &r.Extras); err != nil {
		return nil, grerrors.InternalError("failed to parse recipe extras", err)
	}
	return r, nil
}
