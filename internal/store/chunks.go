package store

import (
	"database/sql"
	"errors"
	"fmt"

	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
)

// ChunkDiff summarizes the effect of UpsertChunk against the chunk
// already stored for the same (source_type, source_id), if any.
type ChunkDiff struct {
	RowID      int64
	IsNew      bool // no prior chunk existed for this (source_type, source_id)
	Changed    bool // content_hash differs from the stored row; stale embedding invalidated
}

// UpsertChunk inserts a chunk, or updates it in place when a chunk for
// the same (source_type, source_id) already exists. When the content
// hash changes, any existing embedding for the row is deleted so the
// embedding pipeline picks it back up as pending.
func (s *Store) UpsertChunk(c *model.Chunk) (ChunkDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingRowID int64
	var existingHash string
	err := s.db.QueryRow(`SELECT rowid, content_hash FROM chunks WHERE source_type = ? AND source_id = ?`, c.SourceType, c.SourceID).
		Scan(&existingRowID, &existingHash)

	tx, txErr := s.db.Begin()
	if txErr != nil {
		return ChunkDiff{}, grerrors.StoreIOError("failed to begin chunk upsert", txErr)
	}
	defer func() { _ = tx.Rollback() }()

	metadata := c.Metadata
	if metadata == nil {
		metadata = []byte("{}")
	}

	if errors.Is(err, sql.ErrNoRows) {
		res, insertErr := tx.Exec(`
			INSERT INTO chunks (source_type, source_id, document_id, content_hash, text, metadata_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.SourceType, c.SourceID, c.DocumentID, c.ContentHash, c.Text, string(metadata), formatTime(c.CreatedAt))
		if insertErr != nil {
			return ChunkDiff{}, grerrors.StoreIOError("failed to insert chunk", insertErr)
		}
		rowID, _ := res.LastInsertId()
		if commitErr := tx.Commit(); commitErr != nil {
			return ChunkDiff{}, grerrors.StoreIOError("failed to commit chunk insert", commitErr)
		}
		return ChunkDiff{RowID: rowID, IsNew: true}, nil
	}
	if err != nil {
		return ChunkDiff{}, grerrors.StoreIOError("failed to look up existing chunk", err)
	}

	changed := existingHash != c.ContentHash
	_, updateErr := tx.Exec(`
		UPDATE chunks SET document_id = ?, content_hash = ?, text = ?, metadata_json = ?, created_at = ? WHERE rowid = ?
	`, c.DocumentID, c.ContentHash, c.Text, string(metadata), formatTime(c.CreatedAt), existingRowID)
	if updateErr != nil {
		return ChunkDiff{}, grerrors.StoreIOError("failed to update chunk", updateErr)
	}
	if changed {
		if _, delErr := tx.Exec(`DELETE FROM embeddings WHERE chunk_id = ?`, existingRowID); delErr != nil {
			return ChunkDiff{}, grerrors.StoreIOError("failed to invalidate stale embedding", delErr)
		}
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return ChunkDiff{}, grerrors.StoreIOError("failed to commit chunk update", commitErr)
	}
	return ChunkDiff{RowID: existingRowID, Changed: changed}, nil
}

// DeleteOrphanedChunks removes chunks for a document/source-type pair
// whose source_id is no longer present in keepSourceIDs. Called after a
// document's transcript, panels, or notes are re-chunked, so stale
// windows/sections/paragraphs from a shrunk document don't linger.
// Embeddings cascade-delete via the foreign key.
func (s *Store) DeleteOrphanedChunks(documentID string, sourceType model.SourceType, keepSourceIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keepSourceIDs) == 0 {
		res, err := s.db.Exec(`DELETE FROM chunks WHERE document_id = ? AND source_type = ?`, documentID, sourceType)
		if err != nil {
			return 0, grerrors.StoreIOError("failed to delete orphaned chunks", err)
		}
		n, _ := res.RowsAffected()
		return n, nil
	}

	placeholders := make([]string, len(keepSourceIDs))
	args := make([]any, 0, len(keepSourceIDs)+2)
	args = append(args, documentID, sourceType)
	for i, id := range keepSourceIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(`DELETE FROM chunks WHERE document_id = ? AND source_type = ? AND source_id NOT IN (%s)`,
		joinPlaceholders(placeholders))
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, grerrors.StoreIOError("failed to delete orphaned chunks", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func joinPlaceholders(ps []string) string {
	out := ""
	for i, p := range ps {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func scanChunk(row interface{ Scan(...any) error }) (*model.Chunk, error) {
	c := &model.Chunk{}
	var sourceType, createdAt, metadata string
	if err := row.Scan(&c.RowID, &sourceType, &c.SourceID, &c.DocumentID, &c.ContentHash, &c.Text, &metadata, &createdAt); err != nil {
		return nil, err
	}
	c.SourceType = model.SourceType(sourceType)
	c.Metadata = []byte(metadata)
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return c, nil
}

const chunkColumns = `rowid, source_type, source_id, document_id, content_hash, text, metadata_json, created_at`

// GetChunk fetches a chunk by rowid.
func (s *Store) GetChunk(rowID int64) (*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := scanChunk(s.db.QueryRow(`SELECT `+chunkColumns+` FROM chunks WHERE rowid = ?`, rowID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, grerrors.NotFoundError(fmt.Sprintf("chunk %d not found", rowID))
	}
	if err != nil {
		return nil, grerrors.StoreIOError("failed to read chunk", err)
	}
	return c, nil
}

// ListChunksByDocument returns every chunk belonging to a document.
func (s *Store) ListChunksByDocument(documentID string) ([]*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+chunkColumns+` FROM chunks WHERE document_id = ? ORDER BY rowid ASC`, documentID)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to list chunks", err)
	}
	defer rows.Close()

	var out []*model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, grerrors.StoreIOError("failed to scan chunk row", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListPendingChunks returns chunks that have no embedding row yet.
func (s *Store) ListPendingChunks(limit int) ([]*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+chunkColumns+` FROM chunks c
		WHERE NOT EXISTS (SELECT 1 FROM embeddings e WHERE e.chunk_id = c.rowid)
		ORDER BY c.rowid ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to list pending chunks", err)
	}
	defer rows.Close()

	var out []*model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, grerrors.StoreIOError("failed to scan pending chunk row", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountChunks returns total, embedded, and pending chunk counts.
func (s *Store) CountChunks() (total, embedded, pending int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err = s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&total); err != nil {
		return 0, 0, 0, grerrors.StoreIOError("failed to count chunks", err)
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&embedded); err != nil {
		return 0, 0, 0, grerrors.StoreIOError("failed to count embeddings", err)
	}
	pending = total - embedded
	return total, embedded, pending, nil
}

// ChunkTextLengths returns the character length of every chunk's text, for
// percentile statistics.
func (s *Store) ChunkTextLengths() ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT length(text) FROM chunks ORDER BY length(text) ASC`)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to read chunk lengths", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, grerrors.StoreIOError("failed to scan chunk length", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// WipeAllChunks deletes every chunk, embedding, and embedding_metadata row.
// Used when the embedding model changes: the old embedding space is no
// longer comparable to the new one.
func (s *Store) WipeAllChunks() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return grerrors.StoreIOError("failed to begin wipe", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM embeddings`,
		`DELETE FROM embedding_metadata`,
		`DELETE FROM chunks`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return grerrors.StoreIOError("failed to wipe chunk state", err)
		}
	}
	return tx.Commit()
}
