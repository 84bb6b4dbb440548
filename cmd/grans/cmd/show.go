package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	grerr "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
	"github.com/grans-cli/grans/internal/search"
)

type showFlags struct {
	transcript bool
	notes      bool
	speaker    string
}

func newShowCmd() *cobra.Command {
	var f showFlags

	cmd := &cobra.Command{
		Use:   "show MEETING",
		Short: "Show a single document: metadata, notes, and/or transcript",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			return runShow(cmd, a, args[0], f)
		}),
	}

	cmd.Flags().BoolVar(&f.transcript, "transcript", false, "Include the full transcript")
	cmd.Flags().BoolVar(&f.notes, "notes", false, "Include the notes")
	cmd.Flags().StringVar(&f.speaker, "speaker", "", "Filter transcript to one speaker: me, other")

	return cmd
}

// documentDetail is the stable JSON shape for `show`.
type documentDetail struct {
	documentSummary
	Summary     string   `json:"summary,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Transcript  []string `json:"transcript,omitempty"`
}

func runShow(cmd *cobra.Command, a *app, idOrTitle string, f showFlags) error {
	doc, err := resolveDocument(a, idOrTitle)
	if err != nil {
		return err
	}

	detail := documentDetail{documentSummary: toDocumentSummary(doc), Summary: doc.Summary}
	if f.notes {
		detail.Notes = doc.NotesPlain
	}
	if f.transcript {
		utterances, err := a.st.ListUtterances(doc.ID)
		if err != nil {
			return err
		}
		speaker := search.Speaker(f.speaker)
		for _, u := range utterances {
			if speaker == search.SpeakerMe && u.Source != model.UtteranceSourceMicrophone {
				continue
			}
			if speaker == search.SpeakerOther && u.Source != model.UtteranceSourceSystem {
				continue
			}
			detail.Transcript = append(detail.Transcript, u.Source.SpeakerLabel()+u.Text)
		}
	}

	return a.out.Emit(detail, func() {
		a.out.Heading(detail.Title)
		fmt.Fprintf(cmd.OutOrStdout(), "ID: %s\nCreated: %s\n", detail.ID, detail.CreatedAt)
		if detail.Summary != "" {
			a.out.Newline()
			fmt.Fprintln(cmd.OutOrStdout(), detail.Summary)
		}
		if detail.Notes != "" {
			a.out.Newline()
			fmt.Fprintln(cmd.OutOrStdout(), detail.Notes)
		}
		if len(detail.Transcript) > 0 {
			a.out.Newline()
			for _, line := range detail.Transcript {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
		}
	})
}

// resolveDocument looks up a document by exact ID first, falling back to a
// case-insensitive title search across non-deleted documents.
func resolveDocument(a *app, idOrTitle string) (*model.Document, error) {
	if doc, err := a.st.GetDocument(idOrTitle, true); err == nil && doc != nil {
		return doc, nil
	}

	docs, err := a.st.ListDocuments(false, nil)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if strings.EqualFold(d.Title, idOrTitle) {
			return d, nil
		}
	}
	for _, d := range docs {
		if containsFold(d.Title, idOrTitle) {
			return d, nil
		}
	}
	return nil, grerr.NotFoundError("no document matches " + idOrTitle)
}
