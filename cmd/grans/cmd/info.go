package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grans-cli/grans/internal/dropbox"
)

// infoPayload is the stable JSON shape for `info`.
type infoPayload struct {
	StorePath string                `json:"store_path"`
	IndexDB   *dropbox.IndexDBStats `json:"index_db"`
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show archive statistics: document, people, and embedding counts",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			meta, err := dropbox.BuildMetadata(a.st)
			if err != nil {
				return err
			}

			payload := infoPayload{StorePath: a.st.Path(), IndexDB: meta.IndexDB}
			return a.out.Emit(payload, func() {
				w := cmd.OutOrStdout()
				a.out.Heading("Archive")
				fmt.Fprintf(w, "Store:              %s\n", payload.StorePath)
				fmt.Fprintf(w, "Schema version:     %d\n", payload.IndexDB.SchemaVersion)
				fmt.Fprintf(w, "Documents:          %d (%d with transcripts)\n", payload.IndexDB.DocumentCount, payload.IndexDB.DocumentsWithTranscripts)
				fmt.Fprintf(w, "Transcript lines:   %d\n", payload.IndexDB.TranscriptUtteranceCount)
				fmt.Fprintf(w, "People:             %d\n", payload.IndexDB.PeopleCount)
				fmt.Fprintf(w, "Embeddings:         %d (%s)\n", payload.IndexDB.EmbeddingCount, payload.IndexDB.EmbeddingModel)
			})
		}),
	}
}
