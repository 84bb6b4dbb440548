package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	grerr "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/search"
)

type searchFlags struct {
	in             string
	semantic       bool
	context        int
	meeting        string
	speaker        string
	limit          int
	includeDeleted bool
	yes            bool
	dateFlags
}

func newSearchCmd() *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the local archive by keyword, context, or semantic similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			return runSearch(cmd, a, strings.Join(args, " "), f)
		}),
	}

	cmd.Flags().StringVar(&f.in, "in", "", "Comma-separated targets: titles,transcripts,notes,panels (default: all)")
	cmd.Flags().BoolVar(&f.semantic, "semantic", false, "Use semantic (embedding) search instead of keyword")
	cmd.Flags().IntVar(&f.context, "context", 0, "Number of surrounding utterances/segments to include")
	cmd.Flags().StringVar(&f.meeting, "meeting", "", "Restrict to documents whose title contains this substring")
	cmd.Flags().StringVar(&f.speaker, "speaker", "", "Filter transcript context to one speaker: me, other")
	cmd.Flags().IntVar(&f.limit, "limit", 20, "Maximum number of results")
	cmd.Flags().BoolVar(&f.includeDeleted, "include-deleted", false, "Include soft-deleted documents")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Skip the confirmation prompt before building the semantic index")
	f.dateFlags.register(cmd)

	return cmd
}

func parseTargets(csv string) map[search.Target]bool {
	if csv == "" {
		return nil
	}
	targets := make(map[search.Target]bool)
	for _, part := range strings.Split(csv, ",") {
		targets[search.Target(strings.TrimSpace(part))] = true
	}
	return targets
}

func runSearch(cmd *cobra.Command, a *app, query string, f searchFlags) error {
	rng, err := f.dateFlags.resolve(a)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(cmd.Context(), a.cfg.Embeddings)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	dispatcher := search.New(a.st, embedder, a.cfg.Store.Path, a.cfg.Embeddings.BatchSize)

	opts := search.Options{
		Query:           query,
		Targets:         parseTargets(f.in),
		Since:           rng.Start,
		Until:           rng.End,
		Limit:           f.limit,
		IncludeDeleted:  f.includeDeleted,
		ContextSize:     f.context,
		Speaker:         search.Speaker(f.speaker),
		Semantic:        f.semantic,
		BypassConfirm:   f.yes,
		MachineReadable: flags.jsonOutput,
	}

	result, err := dispatcher.Search(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if result.NeedsConfirm {
		if flags.jsonOutput {
			return grerr.New(grerr.ErrCodeInvalidInput,
				"semantic index needs rebuilding; pass --yes to proceed non-interactively", nil)
		}
		if !confirmPrompt(cmd, "Rebuilding the semantic index touches many chunks. Continue?") {
			a.out.Status("", "aborted")
			return nil
		}
		opts.BypassConfirm = true
		result, err = dispatcher.Search(cmd.Context(), opts)
		if err != nil {
			return err
		}
	}

	if f.meeting != "" {
		filterResultByMeeting(result, a, f.meeting)
	}

	return renderSearchResult(cmd, a, result, query, f.limit)
}

func confirmPrompt(cmd *cobra.Command, msg string) bool {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", msg)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

// filterResultByMeeting drops entries belonging to documents whose title
// doesn't contain substr, case-insensitively.
func filterResultByMeeting(result *search.Result, a *app, substr string) {
	matches := func(id string) bool {
		doc, err := a.st.GetDocument(id, true)
		if err != nil || doc == nil {
			return false
		}
		return containsFold(doc.Title, substr)
	}

	switch result.Mode {
	case "keyword":
		kept := result.Documents[:0]
		for _, d := range result.Documents {
			if containsFold(d.Document.Title, substr) {
				kept = append(kept, d)
			}
		}
		result.Documents = kept
	case "contextual", "semantic":
		kept := result.ContextWindows[:0]
		for _, w := range result.ContextWindows {
			if matches(w.DocumentID) {
				kept = append(kept, w)
			}
		}
		result.ContextWindows = kept

		keptMatches := result.SemanticMatches[:0]
		for _, m := range result.SemanticMatches {
			if matches(m.DocumentID) {
				keptMatches = append(keptMatches, m)
			}
		}
		result.SemanticMatches = keptMatches
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// contextWindowJSON is the stable JSON shape for one context window, per
// the transcript_results/text_results split.
type contextWindowJSON struct {
	DocumentID   string `json:"document_id"`
	Text         string `json:"text"`
	MatchContext string `json:"match_context,omitempty"`
	Source       string `json:"source,omitempty"`
	Label        string `json:"label,omitempty"`
}

func toContextWindowJSON(w search.ContextWindow) contextWindowJSON {
	out := contextWindowJSON{DocumentID: w.DocumentID, Text: w.Text, MatchContext: w.MatchContext}
	if w.SourceType == model.SourceTypeTranscriptWindow {
		out.Source = string(w.SourceType)
	} else {
		out.Label = string(w.SourceType)
	}
	return out
}

type semanticMatchJSON struct {
	Document documentSummary `json:"document"`
	Score    float64         `json:"score"`
	Text     string          `json:"text,omitempty"`
}

func renderSearchResult(cmd *cobra.Command, a *app, result *search.Result, query string, limit int) error {
	switch result.Mode {
	case "keyword":
		docs := make([]documentSummary, 0, len(result.Documents))
		for _, d := range result.Documents {
			docs = append(docs, toDocumentSummary(d.Document))
		}
		return a.out.Emit(docs, func() {
			rows := make([][]string, len(docs))
			for i, d := range docs {
				rows[i] = []string{d.ID, d.Title, d.CreatedAt}
			}
			a.out.Table([]string{"ID", "TITLE", "CREATED"}, rows)
		})

	case "contextual":
		var transcriptResults, textResults []contextWindowJSON
		for _, w := range result.ContextWindows {
			if w.SourceType == model.SourceTypeTranscriptWindow {
				transcriptResults = append(transcriptResults, toContextWindowJSON(w))
			} else {
				textResults = append(textResults, toContextWindowJSON(w))
			}
		}
		payload := struct {
			TranscriptResults []contextWindowJSON `json:"transcript_results,omitempty"`
			TextResults       []contextWindowJSON `json:"text_results,omitempty"`
		}{transcriptResults, textResults}
		return a.out.Emit(payload, func() {
			for _, w := range append(append([]contextWindowJSON{}, transcriptResults...), textResults...) {
				a.out.Heading(w.DocumentID)
				fmt.Fprintln(cmd.OutOrStdout(), w.Text)
				a.out.Newline()
			}
		})

	case "semantic":
		matches := make([]semanticMatchJSON, 0, len(result.SemanticMatches))
		for _, m := range result.SemanticMatches {
			matches = append(matches, semanticMatchJSON{Document: toDocumentSummary(m.Document), Score: m.Score, Text: m.Text})
		}
		sem := struct {
			Query        string              `json:"query"`
			TotalMatches int                 `json:"total_matches"`
			Limit        int                 `json:"limit"`
			Returned     int                 `json:"returned"`
			Results      []semanticMatchJSON `json:"results"`
		}{
			Query:        query,
			TotalMatches: result.TotalBeforeLimit,
			Limit:        limit,
			Returned:     len(matches),
			Results:      matches,
		}
		return a.out.Emit(sem, func() {
			for _, m := range matches {
				a.out.Heading(fmt.Sprintf("%s (score %.3f)", m.Document.Title, m.Score))
				if m.Text != "" {
					fmt.Fprintln(cmd.OutOrStdout(), m.Text)
				}
				a.out.Newline()
			}
		})

	default:
		if result.Message != "" {
			a.out.Warning(result.Message)
		}
		return nil
	}
}
