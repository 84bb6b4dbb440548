package store

import (
	"database/sql"
	"errors"

	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
)

// syncLogKind is the table name of a transcript or panel sync log.
type syncLogKind string

const (
	SyncLogTranscript syncLogKind = "transcript_sync_log"
	SyncLogPanel      syncLogKind = "panel_sync_log"
)

// RecordSyncLog memoizes a sync failure (not_found or error) for a
// document, incrementing attempt_count if an entry already exists. Later
// sync runs skip a document with any entry, of either status and any age,
// unless retried.
func (s *Store) RecordSyncLog(kind syncLogKind, entry model.SyncLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ` + string(kind) + ` (document_id, status, last_attempted, attempt_count) VALUES (?, ?, ?, 1)
		ON CONFLICT(document_id) DO UPDATE SET status = excluded.status, last_attempted = excluded.last_attempted, attempt_count = ` + string(kind) + `.attempt_count + 1
	`
	_, err := s.db.Exec(query, entry.DocumentID, string(entry.Status), formatTime(entry.LastAttempted))
	if err != nil {
		return grerrors.StoreIOError("failed to record sync log entry", err)
	}
	return nil
}

// GetSyncLog fetches a sync log entry, if one exists.
func (s *Store) GetSyncLog(kind syncLogKind, documentID string) (*model.SyncLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var status, lastAttempted string
	var attemptCount int
	err := s.db.QueryRow(`SELECT status, last_attempted, attempt_count FROM `+string(kind)+` WHERE document_id = ?`, documentID).
		Scan(&status, &lastAttempted, &attemptCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, grerrors.StoreIOError("failed to read sync log entry", err)
	}

	lastAt, parseErr := parseTime(lastAttempted)
	if parseErr != nil {
		return nil, grerrors.InternalError("failed to parse sync log timestamp", parseErr)
	}
	return &model.SyncLogEntry{
		DocumentID:    documentID,
		Status:        model.SyncLogStatus(status),
		LastAttempted: lastAt,
		AttemptCount:  attemptCount,
	}, nil
}

// ClearSyncLog removes a document's sync log entry, used when a retried
// sync succeeds.
func (s *Store) ClearSyncLog(kind syncLogKind, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM `+string(kind)+` WHERE document_id = ?`, documentID)
	if err != nil {
		return grerrors.StoreIOError("failed to clear sync log entry", err)
	}
	return nil
}
