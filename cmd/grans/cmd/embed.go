package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grans-cli/grans/internal/chunk"
	"github.com/grans-cli/grans/internal/embed"
)

func newEmbedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed [status|clear]",
		Short: "Inspect or rebuild the semantic embedding index",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.AddCommand(newEmbedStatusCmd())
	cmd.AddCommand(newEmbedClearCmd())
	return cmd
}

func newEmbedStatusCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show embedding index coverage and chunk size statistics",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			embedder, err := buildEmbedder(cmd.Context(), a.cfg.Embeddings)
			if err != nil {
				return err
			}
			defer func() { _ = embedder.Close() }()

			status, err := embed.GetStatus(a.st, chunk.DefaultConfig(embedder.MaxLength()))
			if err != nil {
				return err
			}

			return a.out.Emit(status, func() {
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Total chunks:    %d\n", status.Total)
				fmt.Fprintf(w, "Embedded:        %d\n", status.Embedded)
				fmt.Fprintf(w, "Pending:         %d\n", status.Pending)
				fmt.Fprintf(w, "Chunk size:      min %d, median %d, p90 %d, max %d\n",
					status.Sizes.Min, status.Sizes.Median, status.Sizes.P90, status.Sizes.Max)
				if status.LegacyMaxLengthWarning {
					a.out.Warning("embedding metadata predates max-length tracking; a re-embed may be needed after a model change")
				}
			})
		}),
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Embedder batch size (status embeds nothing, so it has no effect here)")
	return cmd
}

func newEmbedClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Wipe all chunks and embeddings, forcing a full rebuild on next use",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			if !yes && !flags.jsonOutput {
				if !confirmPrompt(cmd, "This deletes every chunk and embedding. Continue?") {
					a.out.Status("", "aborted")
					return nil
				}
			}
			if err := a.st.WipeAllChunks(); err != nil {
				return err
			}
			return a.out.Emit(map[string]string{"action": "embed_clear", "status": "ok"}, func() {
				a.out.Success("embedding index cleared")
			})
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
