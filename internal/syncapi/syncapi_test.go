package syncapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grans-cli/grans/internal/config"
	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newSyncer(t *testing.T, st *store.Store, handler http.HandlerFunc) *Syncer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &Syncer{
		st:     st,
		client: NewClient(srv.URL, "test-token", 5*time.Second, 0),
		cfg:    config.SyncAPIConfig{MaxConcurrentPulls: 2, MaxRetries: 0},
	}
}

// ============================================================================
// TS01: Entity Sync Classification
// ============================================================================

func TestSyncDocuments_NewDocument_CountsAsInserted(t *testing.T) {
	st := openTestStore(t)
	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(getDocumentsResponse{Docs: []json.RawMessage{
			json.RawMessage(`{"id":"doc-1","title":"Standup","created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z","notes_plain":"notes"}`),
		}})
	})

	stats, err := s.SyncDocuments(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 0, stats.Updated)

	doc, err := st.GetDocument("doc-1", false)
	require.NoError(t, err)
	assert.Equal(t, "Standup", doc.Title)
}

func TestSyncDocuments_UnchangedDocument_CountsAsUnchanged(t *testing.T) {
	st := openTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "Standup", CreatedAt: now, UpdatedAt: now}))

	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(getDocumentsResponse{Docs: []json.RawMessage{
			json.RawMessage(`{"id":"doc-1","title":"Standup","created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z"}`),
		}})
	})

	stats, err := s.SyncDocuments(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 1, stats.Unchanged)
}

func TestSyncDocuments_ExtrasPreservesUnknownFields(t *testing.T) {
	st := openTestStore(t)
	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(getDocumentsResponse{Docs: []json.RawMessage{
			json.RawMessage(`{"id":"doc-1","title":"Standup","created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z","workspace_id":"w-1"}`),
		}})
	})

	_, err := s.SyncDocuments(t.Context())
	require.NoError(t, err)

	doc, err := st.GetDocument("doc-1", false)
	require.NoError(t, err)
	require.Contains(t, doc.Extras, "workspace_id")
}

// ============================================================================
// TS02: Error Classification
// ============================================================================

func TestSyncDocuments_Unauthorized_ReturnsError(t *testing.T) {
	st := openTestStore(t)
	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := s.SyncDocuments(t.Context())
	assert.Error(t, err)
}

// ============================================================================
// TS03: Transcript Sync Selection
// ============================================================================

func TestSyncTranscripts_DocumentWithRealTranscript_IsSkipped(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "Standup", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, st.ReplaceTranscript("doc-1", []*model.TranscriptUtterance{
		{ID: "u1", DocumentID: "doc-1", Text: "hi", Source: model.UtteranceSourceMicrophone, StartTimestamp: now, EndTimestamp: now},
	}))

	called := false
	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		called = true
		_ = json.NewEncoder(w).Encode([]apiUtterance{})
	})

	stats, err := s.SyncTranscripts(t.Context(), TranscriptSyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Attempted)
	assert.False(t, called)
}

func TestSyncTranscripts_DocumentWithNoUtterances_Qualifies(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "Standup", CreatedAt: now, UpdatedAt: now}))

	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]apiUtterance{
			{ID: "u1", Text: "hello", StartTimestamp: now, EndTimestamp: now, Source: "microphone", Final: true},
		})
	})

	stats, err := s.SyncTranscripts(t.Context(), TranscriptSyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fetched)

	utterances, err := st.ListUtterances("doc-1")
	require.NoError(t, err)
	require.Len(t, utterances, 1)
	assert.JSONEq(t, `{"id":"u1","start_timestamp":"`+now.Format(time.RFC3339Nano)+`","end_timestamp":"`+now.Format(time.RFC3339Nano)+`","text":"[stored]","source":"microphone","final":true}`, string(utterances[0].APISnapshot))
}

func TestSyncTranscripts_EmptyPayload_RecordsNotFound(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "Standup", CreatedAt: now, UpdatedAt: now}))

	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]apiUtterance{})
	})

	stats, err := s.SyncTranscripts(t.Context(), TranscriptSyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NotFound)

	entry, err := st.GetSyncLog(store.SyncLogTranscript, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, model.SyncLogNotFound, entry.Status)
}

func TestSyncTranscripts_SyncLogEntryExists_SkippedWithoutRetry(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "Standup", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, st.RecordSyncLog(store.SyncLogTranscript, model.SyncLogEntry{DocumentID: "doc-1", Status: model.SyncLogNotFound, LastAttempted: now}))

	called := false
	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	stats, err := s.SyncTranscripts(t.Context(), TranscriptSyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.False(t, called)
}

func TestSyncTranscripts_RateLimited_StopsRun(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "A", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-2", Title: "B", CreatedAt: now.Add(time.Second), UpdatedAt: now}))

	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	stats, err := s.SyncTranscripts(t.Context(), TranscriptSyncOptions{})
	require.NoError(t, err)
	assert.True(t, stats.Stopped)
}

func TestSyncTranscripts_Unauthorized_ReturnsUnauthenticatedError(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "A", CreatedAt: now, UpdatedAt: now}))

	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := s.SyncTranscripts(t.Context(), TranscriptSyncOptions{})
	assert.Error(t, err)
	assert.Equal(t, grerrors.ErrCodeUnauthenticated, grerrors.GetCode(err))
}

// ============================================================================
// TS04: Panel Sync
// ============================================================================

func TestSyncPanels_FetchesAndStoresPanels(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertDocument(&model.Document{ID: "doc-1", Title: "Standup", CreatedAt: now, UpdatedAt: now}))

	s := newSyncer(t, st, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]apiPanel{
			{ID: "panel-1", Title: "Summary", ContentMarkdown: "body", CreatedAt: now},
		})
	})

	stats, err := s.SyncPanels(t.Context(), PanelSyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fetched)

	panels, err := st.ListPanels("doc-1", false)
	require.NoError(t, err)
	require.Len(t, panels, 1)
	assert.Equal(t, "Summary", panels[0].Title)
}
