package store

import (
	"database/sql"
	"fmt"
	"strings"

	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
)

// ReplaceTranscript atomically replaces every utterance belonging to
// documentID: all existing rows and FTS entries for the document are
// deleted, then the given utterances are inserted. Upstream transcripts
// are synced wholesale (not utterance-by-utterance), so replace-on-sync
// is the natural write pattern and keeps transcript_fts from accumulating
// stale rows across re-syncs.
func (s *Store) ReplaceTranscript(documentID string, utterances []*model.TranscriptUtterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return grerrors.StoreIOError("failed to begin transcript replace", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM transcript_utterances WHERE document_id = ?`, documentID); err != nil {
		return grerrors.StoreIOError("failed to clear existing utterances", err)
	}
	if _, err := tx.Exec(`DELETE FROM transcript_fts WHERE document_id = ?`, documentID); err != nil {
		return grerrors.StoreIOError("failed to clear transcript FTS entry", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO transcript_utterances (id, document_id, start_timestamp, end_timestamp, text, source, final, api_snapshot) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return grerrors.StoreIOError("failed to prepare utterance insert", err)
	}
	defer stmt.Close()

	var texts []string
	for _, u := range utterances {
		snapshot := sql.NullString{}
		if u.APISnapshot != nil {
			snapshot = sql.NullString{String: string(u.APISnapshot), Valid: true}
		}
		final := 0
		if u.Final {
			final = 1
		}
		if _, err := stmt.Exec(u.ID, documentID, formatTime(u.StartTimestamp), formatTime(u.EndTimestamp), u.Text, string(u.Source), final, snapshot); err != nil {
			return grerrors.StoreIOError(fmt.Sprintf("failed to insert utterance %s", u.ID), err)
		}
		if u.Text != "" {
			texts = append(texts, u.Source.SpeakerLabel()+u.Text)
		}
	}

	if len(texts) > 0 {
		joined := strings.Join(texts, "\n")
		if _, err := tx.Exec(`INSERT INTO transcript_fts (document_id, text) VALUES (?, ?)`, documentID, joined); err != nil {
			return grerrors.StoreIOError("failed to index transcript text", err)
		}
	}

	return tx.Commit()
}

// ListUtterances returns every utterance for a document, ordered by
// start_timestamp ascending.
func (s *Store) ListUtterances(documentID string) ([]*model.TranscriptUtterance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, document_id, start_timestamp, end_timestamp, text, source, final, api_snapshot FROM transcript_utterances WHERE document_id = ? ORDER BY start_timestamp ASC`, documentID)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to list utterances", err)
	}
	defer rows.Close()

	var out []*model.TranscriptUtterance
	for rows.Next() {
		u := &model.TranscriptUtterance{}
		var startTS, endTS, source string
		var final int
		var snapshot sql.NullString
		if err := rows.Scan(&u.ID, &u.DocumentID, &startTS, &endTS, &u.Text, &source, &final, &snapshot); err != nil {
			return nil, grerrors.StoreIOError("failed to scan utterance row", err)
		}
		var err error
		if u.StartTimestamp, err = parseTime(startTS); err != nil {
			return nil, grerrors.InternalError("failed to parse utterance start_timestamp", err)
		}
		if u.EndTimestamp, err = parseTime(endTS); err != nil {
			return nil, grerrors.InternalError("failed to parse utterance end_timestamp", err)
		}
		u.Source = model.UtteranceSource(source)
		u.Final = final != 0
		if snapshot.Valid {
			u.APISnapshot = []byte(snapshot.String)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// HasTranscript reports whether any utterances are stored for a document.
func (s *Store) HasTranscript(documentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM transcript_utterances WHERE document_id = ?`, documentID).Scan(&count)
	if err != nil {
		return false, grerrors.StoreIOError("failed to check transcript presence", err)
	}
	return count > 0, nil
}
