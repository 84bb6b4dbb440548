// Package search dispatches a query across three modes — keyword,
// contextual, and semantic — over the local archive store.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/grans-cli/grans/internal/chunk"
	"github.com/grans-cli/grans/internal/embed"
	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/rank"
	"github.com/grans-cli/grans/internal/store"
	"github.com/grans-cli/grans/internal/textutil"
)

// Target is one of the searchable content types.
type Target string

const (
	TargetTitles      Target = "titles"
	TargetTranscripts Target = "transcripts"
	TargetNotes       Target = "notes"
	TargetPanels      Target = "panels"
)

// Speaker filters transcript context windows to one side of a
// conversation.
type Speaker string

const (
	SpeakerAny   Speaker = ""
	SpeakerMe    Speaker = "me"
	SpeakerOther Speaker = "other"
)

// DefaultPendingConfirmThreshold is the pending-chunk count above which
// semantic mode asks for confirmation before running the embedding index.
const DefaultPendingConfirmThreshold = 200

// Options configures a single search call. Mode is selected by
// precedence: Semantic > (ContextSize > 0) > keyword.
type Options struct {
	Query           string
	Targets         map[Target]bool
	Since           *time.Time
	Until           *time.Time
	Limit           int
	IncludeDeleted  bool
	ContextSize     int
	Speaker         Speaker
	Semantic        bool
	BypassConfirm   bool
	MachineReadable bool
}

// DocumentMatch is a keyword-mode search hit.
type DocumentMatch struct {
	Document *model.Document
}

// ContextWindow is one text window with surrounding context, produced by
// contextual mode or by semantic mode's context enrichment.
type ContextWindow struct {
	DocumentID     string
	SourceType     model.SourceType
	Text           string
	MatchContext   string
	WindowStartIdx *int
	WindowEndIdx   *int
}

// SemanticMatch pairs a ranker result with its resolved document.
type SemanticMatch struct {
	rank.Result
	Document *model.Document
}

// Result is the dispatcher's combined output. Exactly one of the three
// slices is populated, depending on which mode ran.
type Result struct {
	Mode             string
	Documents        []DocumentMatch
	ContextWindows   []ContextWindow
	SemanticMatches  []SemanticMatch
	TotalBeforeLimit int
	Message          string
	NeedsConfirm     bool
}

// Dispatcher ties the store, ranker, and embedder together.
type Dispatcher struct {
	st           *store.Store
	embedder     embed.Embedder
	lockDir      string
	batchSize    int
	pendingLimit int
}

// New builds a Dispatcher. lockDir guards the embedding index against
// concurrent runs.
func New(st *store.Store, embedder embed.Embedder, lockDir string, batchSize int) *Dispatcher {
	return &Dispatcher{st: st, embedder: embedder, lockDir: lockDir, batchSize: batchSize, pendingLimit: DefaultPendingConfirmThreshold}
}

// Search dispatches opts to the appropriate mode.
func (d *Dispatcher) Search(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Targets) == 0 {
		opts.Targets = map[Target]bool{TargetTitles: true, TargetTranscripts: true, TargetNotes: true, TargetPanels: true}
	}

	switch {
	case opts.Semantic:
		return d.searchSemantic(ctx, opts)
	case opts.ContextSize > 0:
		return d.searchContextual(opts)
	default:
		return d.searchKeyword(opts)
	}
}

// ============================================================================
// Keyword mode
// ============================================================================

func (d *Dispatcher) searchKeyword(opts Options) (*Result, error) {
	docIDs := make(map[string]bool)

	if opts.Targets[TargetTitles] {
		docs, err := d.st.ListDocuments(opts.IncludeDeleted, nil)
		if err != nil {
			return nil, err
		}
		needle := strings.ToLower(opts.Query)
		for _, doc := range docs {
			if strings.Contains(strings.ToLower(doc.Title), needle) {
				docIDs[doc.ID] = true
			}
		}
	}
	if opts.Targets[TargetNotes] {
		matches, err := d.st.SearchNotesFTS(opts.Query, 0)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			docIDs[m.DocumentID] = true
		}
	}
	if opts.Targets[TargetTranscripts] {
		matches, err := d.st.SearchTranscriptFTS(opts.Query, 0)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			docIDs[m.DocumentID] = true
		}
	}
	if opts.Targets[TargetPanels] {
		matches, err := d.st.SearchPanelFTS(opts.Query, 0)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			docIDs[m.DocumentID] = true
		}
	}

	docs, err := d.resolveAndFilter(docIDs, opts)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	docs = truncate(docs, opts.Limit)

	matches := make([]DocumentMatch, len(docs))
	for i, d := range docs {
		matches[i] = DocumentMatch{Document: d}
	}
	return &Result{Mode: "keyword", Documents: matches}, nil
}

func (d *Dispatcher) resolveAndFilter(docIDs map[string]bool, opts Options) ([]*model.Document, error) {
	var out []*model.Document
	for id := range docIDs {
		doc, err := d.st.GetDocument(id, opts.IncludeDeleted)
		if err != nil {
			continue // deleted-and-excluded, or a race with a concurrent delete
		}
		if !inRange(doc.CreatedAt, opts.Since, opts.Until) {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func inRange(t time.Time, since, until *time.Time) bool {
	if since != nil && t.Before(*since) {
		return false
	}
	if until != nil && !t.Before(*until) {
		return false
	}
	return true
}

func truncate(docs []*model.Document, limit int) []*model.Document {
	if limit <= 0 || len(docs) <= limit {
		return docs
	}
	return docs[:limit]
}

// ============================================================================
// Contextual mode
// ============================================================================

func (d *Dispatcher) searchContextual(opts Options) (*Result, error) {
	onlyTitles := opts.Targets[TargetTitles] && !opts.Targets[TargetTranscripts] && !opts.Targets[TargetNotes] && !opts.Targets[TargetPanels]
	if onlyTitles {
		return &Result{Mode: "contextual", Message: "contextual search does not support the titles target"}, nil
	}

	var transcriptWindows []ContextWindow
	var textWindows []ContextWindow

	if opts.Targets[TargetTranscripts] {
		windows, err := d.contextualTranscripts(opts)
		if err != nil {
			return nil, err
		}
		transcriptWindows = windows
	}
	if opts.Targets[TargetPanels] {
		windows, err := d.contextualPanels(opts)
		if err != nil {
			return nil, err
		}
		textWindows = append(textWindows, windows...)
	}
	if opts.Targets[TargetNotes] {
		windows, err := d.contextualNotes(opts)
		if err != nil {
			return nil, err
		}
		textWindows = append(textWindows, windows...)
	}

	merged := mergeJointLimit(transcriptWindows, textWindows, opts.Limit)
	return &Result{Mode: "contextual", ContextWindows: merged}, nil
}

func (d *Dispatcher) contextualTranscripts(opts Options) ([]ContextWindow, error) {
	matches, err := d.st.SearchTranscriptFTS(opts.Query, 0)
	if err != nil {
		return nil, err
	}

	var windows []ContextWindow
	for _, m := range matches {
		doc, err := d.st.GetDocument(m.DocumentID, opts.IncludeDeleted)
		if err != nil {
			continue
		}
		if !inRange(doc.CreatedAt, opts.Since, opts.Until) {
			continue
		}

		utterances, err := d.st.ListUtterances(doc.ID)
		if err != nil {
			return nil, err
		}
		for i, u := range utterances {
			if !containsIgnoreCase(u.Text, opts.Query) {
				continue
			}
			if !passesSpeakerFilter(opts.Speaker, u.Source) {
				continue
			}
			start := clip(i-opts.ContextSize, 0, len(utterances)-1)
			end := clip(i+opts.ContextSize, 0, len(utterances)-1)
			windows = append(windows, ContextWindow{
				DocumentID: doc.ID,
				SourceType: model.SourceTypeTranscriptWindow,
				Text:       joinUtterances(utterances[start : end+1]),
			})
		}
	}
	return windows, nil
}

func (d *Dispatcher) contextualPanels(opts Options) ([]ContextWindow, error) {
	matches, err := d.st.SearchPanelFTS(opts.Query, 0)
	if err != nil {
		return nil, err
	}

	var windows []ContextWindow
	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m.PanelID] {
			continue
		}
		seen[m.PanelID] = true

		doc, err := d.st.GetDocument(m.DocumentID, opts.IncludeDeleted)
		if err != nil {
			continue
		}
		if !inRange(doc.CreatedAt, opts.Since, opts.Until) {
			continue
		}

		panel, err := d.st.GetPanel(m.PanelID, opts.IncludeDeleted)
		if err != nil {
			continue
		}
		sections := splitSections(panel.ContentMarkdown)
		for i, s := range sections {
			if !containsIgnoreCase(s, opts.Query) {
				continue
			}
			windows = append(windows, ContextWindow{
				DocumentID:   doc.ID,
				SourceType:   model.SourceTypePanelSection,
				Text:         joinStrings(contextSlice(sections, i, opts.ContextSize)),
				MatchContext: "AI notes",
			})
		}
	}
	return windows, nil
}

func (d *Dispatcher) contextualNotes(opts Options) ([]ContextWindow, error) {
	matches, err := d.st.SearchNotesFTS(opts.Query, 0)
	if err != nil {
		return nil, err
	}

	var windows []ContextWindow
	for _, m := range matches {
		doc, err := d.st.GetDocument(m.DocumentID, opts.IncludeDeleted)
		if err != nil {
			continue
		}
		if !inRange(doc.CreatedAt, opts.Since, opts.Until) {
			continue
		}

		paragraphs := splitParagraphs(doc.NotesPlain)
		for i, p := range paragraphs {
			if !containsIgnoreCase(p, opts.Query) {
				continue
			}
			windows = append(windows, ContextWindow{
				DocumentID:   doc.ID,
				SourceType:   model.SourceTypeNotesParagraph,
				Text:         joinStrings(contextSlice(paragraphs, i, opts.ContextSize)),
				MatchContext: "your notes",
			})
		}
	}
	return windows, nil
}

func passesSpeakerFilter(speaker Speaker, source model.UtteranceSource) bool {
	switch speaker {
	case SpeakerMe:
		return source == model.UtteranceSourceMicrophone
	case SpeakerOther:
		return source == model.UtteranceSourceSystem
	default:
		return true
	}
}

func mergeJointLimit(first, second []ContextWindow, limit int) []ContextWindow {
	if limit <= 0 {
		return append(first, second...)
	}
	out := make([]ContextWindow, 0, limit)
	out = append(out, first...)
	if len(out) > limit {
		return out[:limit]
	}
	remaining := limit - len(out)
	if remaining > len(second) {
		remaining = len(second)
	}
	out = append(out, second[:remaining]...)
	return out
}

// ============================================================================
// Semantic mode
// ============================================================================

func (d *Dispatcher) searchSemantic(ctx context.Context, opts Options) (*Result, error) {
	sourceTypes := targetsToSourceTypes(opts.Targets)
	if len(sourceTypes) == 0 {
		return &Result{Mode: "semantic", Message: "semantic search does not support the titles target"}, nil
	}

	status, err := embed.GetStatus(d.st, chunk.DefaultConfig(d.embedder.MaxLength()))
	if err != nil {
		return nil, err
	}
	if !opts.BypassConfirm && !opts.MachineReadable {
		if status.Pending > d.pendingLimit || status.LegacyMaxLengthWarning {
			return &Result{Mode: "semantic", NeedsConfirm: true}, nil
		}
	}

	if _, err := embed.EnsureEmbeddings(ctx, d.st, d.embedder, d.lockDir, d.batchSize); err != nil {
		return nil, err
	}

	queryVec, err := d.embedder.EmbedQuery(ctx, opts.Query)
	if err != nil {
		return nil, err
	}

	chunks, embeddings, err := d.st.AllEmbeddings()
	if err != nil {
		return nil, err
	}

	ranked := rank.Rank(queryVec, chunks, embeddings, sourceTypes, 0)
	total := len(ranked)

	var matches []SemanticMatch
	for _, r := range ranked {
		doc, err := d.st.GetDocument(r.DocumentID, opts.IncludeDeleted)
		if err != nil {
			continue
		}
		if !inRange(doc.CreatedAt, opts.Since, opts.Until) {
			total--
			continue
		}
		matches = append(matches, SemanticMatch{Result: r, Document: doc})
	}

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	if opts.ContextSize > 0 {
		enriched, err := d.enrichSemanticContext(matches, opts)
		if err != nil {
			return nil, err
		}
		return &Result{Mode: "semantic", ContextWindows: enriched, TotalBeforeLimit: total}, nil
	}

	return &Result{Mode: "semantic", SemanticMatches: matches, TotalBeforeLimit: total}, nil
}

func (d *Dispatcher) enrichSemanticContext(matches []SemanticMatch, opts Options) ([]ContextWindow, error) {
	var out []ContextWindow
	for _, m := range matches {
		if m.SourceType != model.SourceTypeTranscriptWindow || m.WindowStartIdx == nil || m.WindowEndIdx == nil {
			continue
		}

		utterances, err := d.st.ListUtterances(m.DocumentID)
		if err != nil {
			return nil, err
		}
		if len(utterances) == 0 {
			continue
		}

		center := clip((*m.WindowStartIdx+*m.WindowEndIdx)/2, 0, len(utterances)-1)
		if !passesSpeakerFilter(opts.Speaker, utterances[center].Source) {
			continue
		}

		start := clip(center-opts.ContextSize, 0, len(utterances)-1)
		end := clip(center+opts.ContextSize, 0, len(utterances)-1)
		out = append(out, ContextWindow{
			DocumentID: m.DocumentID,
			SourceType: model.SourceTypeTranscriptWindow,
			Text:       joinUtterances(utterances[start : end+1]),
		})
	}
	return out, nil
}

func targetsToSourceTypes(targets map[Target]bool) []model.SourceType {
	var out []model.SourceType
	if targets[TargetTranscripts] {
		out = append(out, model.SourceTypeTranscriptWindow)
	}
	if targets[TargetPanels] {
		out = append(out, model.SourceTypePanelSection)
	}
	if targets[TargetNotes] {
		out = append(out, model.SourceTypeNotesParagraph)
	}
	return out
}

// ============================================================================
// Small helpers
// ============================================================================

func clip(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}

func containsIgnoreCase(haystack, needle string) bool {
	return textutil.ContainsIgnoreCase(haystack, needle)
}

func joinUtterances(utterances []*model.TranscriptUtterance) string {
	parts := make([]string, len(utterances))
	for i, u := range utterances {
		parts[i] = u.Source.SpeakerLabel() + u.Text
	}
	return strings.Join(parts, "\n")
}

func joinStrings(ss []string) string {
	return strings.Join(ss, "\n\n")
}

func contextSlice(ss []string, center, contextSize int) []string {
	start := clip(center-contextSize, 0, len(ss)-1)
	end := clip(center+contextSize, 0, len(ss)-1)
	return ss[start : end+1]
}

func splitParagraphs(notes string) []string {
	return textutil.SplitIntoParagraphs(notes)
}

func splitSections(markdown string) []string {
	sections := textutil.SplitMarkdownSections(markdown)
	out := make([]string, len(sections))
	for i, s := range sections {
		if s.Heading != "" {
			out[i] = fmt.Sprintf("%s\n%s", s.Heading, s.Body)
		} else {
			out[i] = s.Body
		}
	}
	return out
}
