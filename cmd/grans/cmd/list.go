package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/grans-cli/grans/internal/model"
)

type listFlags struct {
	person         string
	includeDeleted bool
	dateFlags
}

func newListCmd() *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents in the local archive",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			return runList(cmd, a, f)
		}),
	}

	cmd.Flags().StringVar(&f.person, "person", "", "Restrict to documents with this attendee (name or email substring)")
	cmd.Flags().BoolVar(&f.includeDeleted, "include-deleted", false, "Include soft-deleted documents")
	f.dateFlags.register(cmd)

	return cmd
}

func runList(cmd *cobra.Command, a *app, f listFlags) error {
	rng, err := f.dateFlags.resolve(a)
	if err != nil {
		return err
	}

	docs, err := a.st.ListDocuments(f.includeDeleted, rng.Start)
	if err != nil {
		return err
	}

	if rng.End != nil {
		kept := docs[:0]
		for _, d := range docs {
			if d.CreatedAt.Before(*rng.End) {
				kept = append(kept, d)
			}
		}
		docs = kept
	}
	if f.person != "" {
		docs = filterDocumentsByPerson(docs, f.person)
	}

	summaries := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, toDocumentSummary(d))
	}

	return a.out.Emit(summaries, func() {
		a.out.Table([]string{"ID", "TITLE", "CREATED"}, documentTableRows(docs))
	})
}

func filterDocumentsByPerson(docs []*model.Document, substr string) []*model.Document {
	kept := docs[:0]
	for _, d := range docs {
		if personMatches(d, substr) {
			kept = append(kept, d)
		}
	}
	return kept
}

func personMatches(d *model.Document, substr string) bool {
	substr = strings.ToLower(substr)
	if d.People.Creator != nil && personFieldsMatch(*d.People.Creator, substr) {
		return true
	}
	for _, p := range d.People.Attendees {
		if personFieldsMatch(p, substr) {
			return true
		}
	}
	return false
}

func personFieldsMatch(p model.Person, substr string) bool {
	return strings.Contains(strings.ToLower(p.Name), substr) || strings.Contains(strings.ToLower(p.Email), substr)
}
