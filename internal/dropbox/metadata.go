package dropbox

import (
	"database/sql"
	"time"

	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/store"
)

// IndexDBStats summarizes the local archive so `dropbox status` can
// compare local and remote state without downloading the full database.
type IndexDBStats struct {
	DocumentCount            int64      `json:"document_count"`
	DocumentsWithTranscripts int64      `json:"documents_with_transcripts"`
	TranscriptUtteranceCount int64      `json:"transcript_utterance_count"`
	PeopleCount              int64      `json:"people_count"`
	EarliestDocument         *time.Time `json:"earliest_document,omitempty"`
	LatestDocument           *time.Time `json:"latest_document,omitempty"`
	SchemaVersion            int        `json:"schema_version"`
	EmbeddingCount           int64      `json:"embedding_count"`
	EmbeddingModel           string     `json:"embedding_model,omitempty"`
}

// SyncMetadata is the small JSON sidecar uploaded alongside the database
// snapshot so `dropbox status` can report remote statistics without
// pulling the whole file.
type SyncMetadata struct {
	GeneratedAt time.Time     `json:"generated_at"`
	IndexDB     *IndexDBStats `json:"index_db,omitempty"`
}

// BuildMetadata computes sync metadata from the currently open store.
func BuildMetadata(st *store.Store) (*SyncMetadata, error) {
	stats, err := indexDBStats(st)
	if err != nil {
		return nil, err
	}
	return &SyncMetadata{GeneratedAt: time.Now().UTC(), IndexDB: stats}, nil
}

func parseOptionalTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func indexDBStats(st *store.Store) (*IndexDBStats, error) {
	db := st.DB()

	stats := &IndexDBStats{}
	row := db.QueryRow(`SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`)
	if err := row.Scan(&stats.DocumentCount); err != nil {
		return nil, err
	}

	row = db.QueryRow(`SELECT COUNT(DISTINCT document_id) FROM transcript_utterances`)
	if err := row.Scan(&stats.DocumentsWithTranscripts); err != nil {
		return nil, err
	}

	row = db.QueryRow(`SELECT COUNT(*) FROM transcript_utterances`)
	if err := row.Scan(&stats.TranscriptUtteranceCount); err != nil {
		return nil, err
	}

	row = db.QueryRow(`SELECT COUNT(*) FROM people`)
	if err := row.Scan(&stats.PeopleCount); err != nil {
		return nil, err
	}

	var earliest, latest sql.NullString
	row = db.QueryRow(`SELECT MIN(created_at), MAX(created_at) FROM documents WHERE deleted_at IS NULL`)
	if err := row.Scan(&earliest, &latest); err != nil {
		return nil, err
	}
	stats.EarliestDocument = parseOptionalTime(earliest)
	stats.LatestDocument = parseOptionalTime(latest)

	var schemaVersion int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&schemaVersion); err != nil {
		return nil, err
	}
	stats.SchemaVersion = schemaVersion

	_, embedded, _, err := st.CountChunks()
	if err != nil {
		return nil, err
	}
	stats.EmbeddingCount = int64(embedded)

	if modelName, ok, err := st.GetEmbeddingMeta(model.EmbeddingMetaModelName); err == nil && ok {
		stats.EmbeddingModel = modelName
	}

	return stats, nil
}
