package cmd

import (
	"github.com/spf13/cobra"
)

func newRecentCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently updated documents",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			docs, err := a.st.ListDocuments(false, nil)
			if err != nil {
				return err
			}
			if limit > 0 && len(docs) > limit {
				docs = docs[:limit]
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

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of documents to show")
	return cmd
}
