package cmd

import (
	"github.com/spf13/cobra"
)

func newWithCmd() *cobra.Command {
	var includeDeleted bool

	cmd := &cobra.Command{
		Use:   "with PERSON",
		Short: "List documents attended by PERSON (name or email substring)",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			docs, err := a.st.ListDocuments(includeDeleted, nil)
			if err != nil {
				return err
			}
			docs = filterDocumentsByPerson(docs, args[0])

			summaries := make([]documentSummary, 0, len(docs))
			for _, d := range docs {
				summaries = append(summaries, toDocumentSummary(d))
			}
			return a.out.Emit(summaries, func() {
				a.out.Table([]string{"ID", "TITLE", "CREATED"}, documentTableRows(docs))
			})
		}),
	}

	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "Include soft-deleted documents")
	return cmd
}
