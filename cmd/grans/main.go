// Command grans is a local, offline query engine over a user's archive of
// meeting recordings.
package main

import (
	"fmt"
	"os"

	"github.com/grans-cli/grans/cmd/grans/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
