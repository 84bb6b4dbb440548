package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grans-cli/grans/internal/dateresolve"
)

// dateFlags holds the --from/--to/--date flags shared by search, list,
// recent, and today.
type dateFlags struct {
	from string
	to   string
	date string
}

func (f *dateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Only include documents on or after this date")
	cmd.Flags().StringVar(&f.to, "to", "", "Only include documents before this date (a bare YYYY-MM-DD includes that whole day)")
	cmd.Flags().StringVar(&f.date, "date", "", "Relative period: today, yesterday, this-week, last-week, this-month, last-month")
}

func (f *dateFlags) resolve(a *app) (dateresolve.Range, error) {
	return a.dates.Resolve(dateresolve.Options{From: f.from, To: f.to, Date: f.date})
}
