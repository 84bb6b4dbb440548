package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grans-cli/grans/internal/dateresolve"
)

func newTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List documents created today",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			rng, err := a.dates.Resolve(dateresolve.Options{Date: "today"})
			if err != nil {
				return err
			}

			docs, err := a.st.ListDocuments(false, rng.Start)
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

			summaries := make([]documentSummary, 0, len(docs))
			for _, d := range docs {
				summaries = append(summaries, toDocumentSummary(d))
			}
			return a.out.Emit(summaries, func() {
				a.out.Table([]string{"ID", "TITLE", "CREATED"}, documentTableRows(docs))
			})
		}),
	}
}
