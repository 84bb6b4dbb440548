package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grans-cli/grans/internal/output"
	"github.com/grans-cli/grans/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Short())
				return err
			}

			info := version.GetInfo()
			if flags.jsonOutput {
				return output.NewJSON(cmd.OutOrStdout()).JSON(info)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return err
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}
