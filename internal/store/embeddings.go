package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
)

// encodeVector packs a float32 vector as little-endian bytes for BLOB
// storage; SQLite has no native vector type and the corpus is small
// enough that exact brute-force cosine search over decoded vectors is
// fast, so no ANN index format is needed.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// UpsertEmbedding stores (or replaces) the embedding for a chunk.
func (s *Store) UpsertEmbedding(e *model.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO embeddings (chunk_id, vector) VALUES (?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET vector = excluded.vector
	`, e.ChunkID, encodeVector(e.Vector))
	if err != nil {
		return grerrors.StoreIOError("failed to upsert embedding", err)
	}
	return nil
}

// AllEmbeddings loads every chunk/embedding pair, for brute-force
// semantic ranking.
func (s *Store) AllEmbeddings() ([]*model.Chunk, []*model.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT c.` + chunkColumnsQualified() + `, e.vector
		FROM chunks c JOIN embeddings e ON e.chunk_id = c.rowid
	`)
	if err != nil {
		return nil, nil, grerrors.StoreIOError("failed to load embeddings", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	var embeddings []*model.Embedding
	for rows.Next() {
		c := &model.Chunk{}
		var sourceType, createdAt, metadata string
		var vecBytes []byte
		if err := rows.Scan(&c.RowID, &sourceType, &c.SourceID, &c.DocumentID, &c.ContentHash, &c.Text, &metadata, &createdAt, &vecBytes); err != nil {
			return nil, nil, grerrors.StoreIOError("failed to scan embedding row", err)
		}
		c.SourceType = model.SourceType(sourceType)
		c.Metadata = []byte(metadata)
		var parseErr error
		if c.CreatedAt, parseErr = parseTime(createdAt); parseErr != nil {
			return nil, nil, grerrors.InternalError("failed to parse chunk created_at", parseErr)
		}
		chunks = append(chunks, c)
		embeddings = append(embeddings, &model.Embedding{ChunkID: c.RowID, Vector: decodeVector(vecBytes)})
	}
	return chunks, embeddings, rows.Err()
}

func chunkColumnsQualified() string {
	return "rowid, source_type, source_id, document_id, content_hash, text, metadata_json, created_at"
}

// GetEmbeddingMeta reads an embedding_metadata value, returning ("", false)
// if absent.
func (s *Store) GetEmbeddingMeta(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM embedding_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, grerrors.StoreIOError("failed to read embedding metadata", err)
	}
	return value, true, nil
}

// SetEmbeddingMeta writes an embedding_metadata key/value pair.
func (s *Store) SetEmbeddingMeta(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO embedding_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return grerrors.StoreIOError(fmt.Sprintf("failed to write embedding metadata %s", key), err)
	}
	return nil
}
