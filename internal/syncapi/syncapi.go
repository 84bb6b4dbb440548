package syncapi

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grans-cli/grans/internal/config"
	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/platform"
	"github.com/grans-cli/grans/internal/store"
)

// EntityStats reports how many rows an entity-kind pull inserted, updated,
// or left unchanged.
type EntityStats struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// Report summarizes a full sync run across every entity kind. A nil Err
// for a kind means that kind wasn't requested or succeeded; partial
// failures are recorded per kind and never abort the other pulls.
type Report struct {
	Documents       EntityStats
	People          EntityStats
	CalendarEvents  EntityStats
	Templates       EntityStats
	Recipes         EntityStats
	DocumentsErr    error
	PeopleErr       error
	CalendarsErr    error
	TemplatesErr    error
	RecipesErr      error
}

// Syncer pulls from the upstream document API and upserts into the store.
type Syncer struct {
	st     *store.Store
	client *Client
	cfg    config.SyncAPIConfig
}

// New resolves the upstream credential (override, then platform discovery)
// and builds a Syncer.
func New(st *store.Store, cfg config.SyncAPIConfig, tokenOverride string) (*Syncer, error) {
	token, err := platform.ResolveAPIToken(tokenOverride)
	if err != nil {
		return nil, err
	}
	return &Syncer{
		st:     st,
		client: NewClient(cfg.BaseURL, token, cfg.HTTPTimeout, cfg.MaxRetries),
		cfg:    cfg,
	}, nil
}

// SyncAll pulls documents, people, calendar events, templates, and recipes
// concurrently, bounded by cfg.MaxConcurrentPulls. A failure in one kind
// does not prevent the others from running or being reported.
func (s *Syncer) SyncAll(ctx context.Context) *Report {
	report := &Report{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(1, s.cfg.MaxConcurrentPulls))

	g.Go(func() error {
		report.Documents, report.DocumentsErr = s.SyncDocuments(ctx)
		return nil
	})
	g.Go(func() error {
		report.People, report.PeopleErr = s.SyncPeople(ctx)
		return nil
	})
	g.Go(func() error {
		report.CalendarEvents, report.CalendarsErr = s.SyncCalendarEvents(ctx)
		return nil
	})
	g.Go(func() error {
		report.Templates, report.TemplatesErr = s.SyncTemplates(ctx)
		return nil
	})
	g.Go(func() error {
		report.Recipes, report.RecipesErr = s.SyncRecipes(ctx)
		return nil
	})
	_ = g.Wait() // each goroutine records its own error; errgroup's is always nil here

	return report
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SyncDocuments bulk-fetches every document and upserts it by id.
func (s *Syncer) SyncDocuments(ctx context.Context) (EntityStats, error) {
	var resp getDocumentsResponse
	if err := s.client.postV2(ctx, "get-documents", getDocumentsRequest{}, &resp); err != nil {
		return EntityStats{}, err
	}

	var stats EntityStats
	for _, raw := range resp.Docs {
		var wire apiDocument
		if err := json.Unmarshal(raw, &wire); err != nil {
			return stats, grerrors.DeserializationError("failed to parse document", err)
		}
		doc := wire.toModel(raw)

		existing, err := s.st.GetDocument(doc.ID, true)
		if err != nil && grerrors.GetCode(err) != grerrors.ErrCodeNotFound {
			return stats, err
		}
		if err := s.st.UpsertDocument(doc); err != nil {
			return stats, err
		}
		classifyUpsert(&stats, existing == nil, func() bool {
			return existing != nil && documentsUnchanged(existing, doc)
		})
	}
	return stats, nil
}

func documentsUnchanged(a, b *model.Document) bool {
	return a.Title == b.Title && a.NotesPlain == b.NotesPlain &&
		a.NotesMarkdown == b.NotesMarkdown && a.Summary == b.Summary &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

// SyncPeople bulk-fetches every known person and upserts by id.
func (s *Syncer) SyncPeople(ctx context.Context) (EntityStats, error) {
	var raws []json.RawMessage
	if err := s.client.postV1(ctx, "get-people", struct{}{}, &raws); err != nil {
		return EntityStats{}, err
	}

	var stats EntityStats
	for _, raw := range raws {
		var wire apiPerson
		if err := json.Unmarshal(raw, &wire); err != nil {
			return stats, grerrors.DeserializationError("failed to parse person", err)
		}
		p := wire.toModel()

		existing, err := s.st.GetPerson(p.ID)
		if err != nil && grerrors.GetCode(err) != grerrors.ErrCodeNotFound {
			return stats, err
		}
		if err := s.st.UpsertPerson(&p); err != nil {
			return stats, err
		}
		classifyUpsert(&stats, existing == nil, func() bool {
			return existing != nil && *existing == p
		})
	}
	return stats, nil
}

// SyncCalendarEvents refreshes and upserts calendar events.
func (s *Syncer) SyncCalendarEvents(ctx context.Context) (EntityStats, error) {
	var resp refreshCalendarEventsResponse
	if err := s.client.postV1(ctx, "refresh-calendar-events", struct{}{}, &resp); err != nil {
		return EntityStats{}, err
	}
	if resp.Results == nil {
		return EntityStats{}, nil
	}

	var stats EntityStats
	for _, raw := range resp.Results.Events {
		var wire apiCalendarEvent
		if err := json.Unmarshal(raw, &wire); err != nil {
			return stats, grerrors.DeserializationError("failed to parse calendar event", err)
		}
		ev := wire.toModel()

		existing, err := s.st.GetCalendarEvent(ev.ID)
		if err != nil && grerrors.GetCode(err) != grerrors.ErrCodeNotFound {
			return stats, err
		}
		if err := s.st.UpsertCalendarEvent(&ev); err != nil {
			return stats, err
		}
		classifyUpsert(&stats, existing == nil, func() bool {
			return existing != nil && existing.Summary == ev.Summary &&
				existing.StartTime.Equal(ev.StartTime) && existing.EndTime.Equal(ev.EndTime)
		})
	}
	return stats, nil
}

// SyncTemplates bulk-fetches panel templates and upserts by id.
func (s *Syncer) SyncTemplates(ctx context.Context) (EntityStats, error) {
	var raws []json.RawMessage
	if err := s.client.postV1(ctx, "get-panel-templates", struct{}{}, &raws); err != nil {
		return EntityStats{}, err
	}

	existing, err := s.st.ListTemplates()
	if err != nil {
		return EntityStats{}, err
	}
	byID := make(map[string]*model.Template, len(existing))
	for _, t := range existing {
		byID[t.ID] = t
	}

	var stats EntityStats
	for _, raw := range raws {
		var wire apiTemplate
		if err := json.Unmarshal(raw, &wire); err != nil {
			return stats, grerrors.DeserializationError("failed to parse template", err)
		}
		t := wire.toModel(raw)

		prev := byID[t.ID]
		if err := s.st.UpsertTemplate(t); err != nil {
			return stats, err
		}
		classifyUpsert(&stats, prev == nil, func() bool {
			return prev != nil && prev.Name == t.Name && prev.Slug == t.Slug &&
				prev.Category == t.Category && prev.IsSystem == t.IsSystem
		})
	}
	return stats, nil
}

// SyncRecipes bulk-fetches saved prompts and upserts by id.
func (s *Syncer) SyncRecipes(ctx context.Context) (EntityStats, error) {
	var resp getRecipesResponse
	if err := s.client.postV1(ctx, "get-recipes", struct{}{}, &resp); err != nil {
		return EntityStats{}, err
	}

	var stats EntityStats
	for _, raw := range resp.Recipes {
		var wire apiRecipe
		if err := json.Unmarshal(raw, &wire); err != nil {
			return stats, grerrors.DeserializationError("failed to parse recipe", err)
		}
		r := wire.toModel(raw)

		existing, err := s.st.GetRecipe(r.ID)
		if err != nil && grerrors.GetCode(err) != grerrors.ErrCodeNotFound {
			return stats, err
		}
		if err := s.st.UpsertRecipe(r); err != nil {
			return stats, err
		}
		classifyUpsert(&stats, existing == nil, func() bool {
			return existing != nil && existing.TemplateID == r.TemplateID && existing.Prompt == r.Prompt
		})
	}
	return stats, nil
}

func classifyUpsert(stats *EntityStats, isNew bool, unchanged func() bool) {
	switch {
	case isNew:
		stats.Inserted++
	case unchanged():
		stats.Unchanged++
	default:
		stats.Updated++
	}
}

// TranscriptSyncOptions controls which documents a transcript sync visits.
type TranscriptSyncOptions struct {
	Limit   int
	Since   *time.Time
	Retry   bool
	DelayMs int
}

// TranscriptSyncStats reports how a transcript sync run went.
type TranscriptSyncStats struct {
	Attempted int
	Fetched   int
	NotFound  int
	Errors    int
	Skipped   int
	Stopped   bool // true if the run stopped early on a 429
}

// SyncTranscripts pulls transcripts for documents that qualify: no
// utterances at all, or every utterance has a null (pre-migration)
// source. Runs sequentially; a 401 aborts immediately, a 429 stops the
// run without erroring further documents.
func (s *Syncer) SyncTranscripts(ctx context.Context, opts TranscriptSyncOptions) (*TranscriptSyncStats, error) {
	docs, err := s.st.ListDocuments(false, opts.Since)
	if err != nil {
		return nil, err
	}

	stats := &TranscriptSyncStats{}
	var candidates []*model.Document
	for _, doc := range docs {
		qualifies, err := s.documentNeedsTranscript(doc.ID)
		if err != nil {
			return nil, err
		}
		if !qualifies {
			continue
		}
		if !opts.Retry {
			entry, err := s.st.GetSyncLog(store.SyncLogTranscript, doc.ID)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				stats.Skipped++
				continue
			}
		}
		candidates = append(candidates, doc)
		if opts.Limit > 0 && len(candidates) >= opts.Limit {
			break
		}
	}

	for i, doc := range candidates {
		stats.Attempted++

		var utterances []apiUtterance
		err := s.client.postV1(ctx, "get-document-transcript", getTranscriptRequest{DocumentID: doc.ID}, &utterances)
		switch {
		case err == nil:
			if len(utterances) == 0 {
				if err := s.st.RecordSyncLog(store.SyncLogTranscript, model.SyncLogEntry{
					DocumentID: doc.ID, Status: model.SyncLogNotFound, LastAttempted: time.Now().UTC(),
				}); err != nil {
					return stats, err
				}
				stats.NotFound++
				break
			}
			if err := s.replaceTranscript(doc.ID, utterances); err != nil {
				if err := s.st.RecordSyncLog(store.SyncLogTranscript, model.SyncLogEntry{
					DocumentID: doc.ID, Status: model.SyncLogError, LastAttempted: time.Now().UTC(),
				}); err != nil {
					return stats, err
				}
				stats.Errors++
				break
			}
			if err := s.st.ClearSyncLog(store.SyncLogTranscript, doc.ID); err != nil {
				return stats, err
			}
			stats.Fetched++
		case isUnauthorized(err):
			return stats, grerrors.UnauthenticatedError("upstream API rejected the credential", err)
		case isRateLimited(err):
			stats.Stopped = true
			return stats, nil
		case isNotFound(err):
			if err := s.st.RecordSyncLog(store.SyncLogTranscript, model.SyncLogEntry{
				DocumentID: doc.ID, Status: model.SyncLogNotFound, LastAttempted: time.Now().UTC(),
			}); err != nil {
				return stats, err
			}
			stats.NotFound++
		default:
			if err := s.st.RecordSyncLog(store.SyncLogTranscript, model.SyncLogEntry{
				DocumentID: doc.ID, Status: model.SyncLogError, LastAttempted: time.Now().UTC(),
			}); err != nil {
				return stats, err
			}
			stats.Errors++
		}

		if i < len(candidates)-1 {
			sleepWithJitter(ctx, time.Duration(opts.DelayMs)*time.Millisecond, 500*time.Millisecond)
		}
	}

	return stats, nil
}

func (s *Syncer) documentNeedsTranscript(documentID string) (bool, error) {
	utterances, err := s.st.ListUtterances(documentID)
	if err != nil {
		return false, err
	}
	if len(utterances) == 0 {
		return true, nil
	}
	for _, u := range utterances {
		if u.Source != "" {
			return false, nil
		}
	}
	return true, nil
}

// replaceTranscript converts the upstream utterances, redacts the
// api-snapshot, and replaces the document's transcript in one call.
func (s *Syncer) replaceTranscript(documentID string, utterances []apiUtterance) error {
	out := make([]*model.TranscriptUtterance, 0, len(utterances))
	for _, u := range utterances {
		snapshot, err := redactedSnapshot(u)
		if err != nil {
			return err
		}
		out = append(out, &model.TranscriptUtterance{
			ID: u.ID, DocumentID: documentID, StartTimestamp: u.StartTimestamp, EndTimestamp: u.EndTimestamp,
			Text: u.Text, Source: model.UtteranceSource(u.Source), Final: u.Final, APISnapshot: snapshot,
		})
	}
	return s.st.ReplaceTranscript(documentID, out)
}

// redactedSnapshot serializes u with its "text" field replaced by the
// literal string "[stored]", preserving key presence without duplicating
// the transcript text in the snapshot column.
func redactedSnapshot(u apiUtterance) (json.RawMessage, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, grerrors.InternalError("failed to serialize utterance snapshot", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, grerrors.InternalError("failed to redact utterance snapshot", err)
	}
	redacted, err := json.Marshal("[stored]")
	if err != nil {
		return nil, err
	}
	fields["text"] = redacted
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, grerrors.InternalError("failed to serialize redacted snapshot", err)
	}
	return out, nil
}

// PanelSyncOptions controls which documents a panel sync visits.
type PanelSyncOptions struct {
	Limit   int
	Since   *time.Time
	Retry   bool
	DelayMs int
}

// PanelSyncStats reports how a panel sync run went.
type PanelSyncStats struct {
	Attempted int
	Fetched   int
	NotFound  int
	Errors    int
	Skipped   int
	Stopped   bool
}

// SyncPanels pulls panels for documents that have none, mirroring
// SyncTranscripts' selection, sync-log, rate-limit, and pacing rules.
func (s *Syncer) SyncPanels(ctx context.Context, opts PanelSyncOptions) (*PanelSyncStats, error) {
	docs, err := s.st.ListDocuments(false, opts.Since)
	if err != nil {
		return nil, err
	}

	stats := &PanelSyncStats{}
	var candidates []*model.Document
	for _, doc := range docs {
		existing, err := s.st.ListPanels(doc.ID, false)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			continue
		}
		if !opts.Retry {
			entry, err := s.st.GetSyncLog(store.SyncLogPanel, doc.ID)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				stats.Skipped++
				continue
			}
		}
		candidates = append(candidates, doc)
		if opts.Limit > 0 && len(candidates) >= opts.Limit {
			break
		}
	}

	for i, doc := range candidates {
		stats.Attempted++

		var panels []apiPanel
		err := s.client.postV1(ctx, "get-document-panels", getDocumentPanelsRequest{DocumentID: doc.ID}, &panels)
		switch {
		case err == nil:
			if len(panels) == 0 {
				if err := s.st.RecordSyncLog(store.SyncLogPanel, model.SyncLogEntry{
					DocumentID: doc.ID, Status: model.SyncLogNotFound, LastAttempted: time.Now().UTC(),
				}); err != nil {
					return stats, err
				}
				stats.NotFound++
				break
			}
			failed := false
			for _, p := range panels {
				if err := s.st.UpsertPanel(p.toModel(doc.ID)); err != nil {
					failed = true
					break
				}
			}
			if failed {
				if err := s.st.RecordSyncLog(store.SyncLogPanel, model.SyncLogEntry{
					DocumentID: doc.ID, Status: model.SyncLogError, LastAttempted: time.Now().UTC(),
				}); err != nil {
					return stats, err
				}
				stats.Errors++
				break
			}
			if err := s.st.ClearSyncLog(store.SyncLogPanel, doc.ID); err != nil {
				return stats, err
			}
			stats.Fetched++
		case isUnauthorized(err):
			return stats, grerrors.UnauthenticatedError("upstream API rejected the credential", err)
		case isRateLimited(err):
			stats.Stopped = true
			return stats, nil
		case isNotFound(err):
			if err := s.st.RecordSyncLog(store.SyncLogPanel, model.SyncLogEntry{
				DocumentID: doc.ID, Status: model.SyncLogNotFound, LastAttempted: time.Now().UTC(),
			}); err != nil {
				return stats, err
			}
			stats.NotFound++
		default:
			if err := s.st.RecordSyncLog(store.SyncLogPanel, model.SyncLogEntry{
				DocumentID: doc.ID, Status: model.SyncLogError, LastAttempted: time.Now().UTC(),
			}); err != nil {
				return stats, err
			}
			stats.Errors++
		}

		if i < len(candidates)-1 {
			sleepWithJitter(ctx, time.Duration(opts.DelayMs)*time.Millisecond, 500*time.Millisecond)
		}
	}

	return stats, nil
}
