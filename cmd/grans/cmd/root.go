// Package cmd provides the grans CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grans-cli/grans/internal/config"
	"github.com/grans-cli/grans/internal/dateresolve"
	grerr "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/logging"
	"github.com/grans-cli/grans/internal/output"
	"github.com/grans-cli/grans/internal/platform"
	"github.com/grans-cli/grans/internal/store"
	"github.com/grans-cli/grans/pkg/version"
)

// globalFlags holds the persistent flags parsed before any subcommand runs.
type globalFlags struct {
	jsonOutput bool
	noColor    bool
	utc        bool
	dbPath     string
	token      string
	verbose    bool
}

var flags globalFlags

// NewRootCmd creates the root command for the grans CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grans",
		Short: "Query your local archive of meeting recordings",
		Long: `grans is a local, offline query engine over an archive of meeting
recordings synced from an upstream document API. Search by keyword,
surrounding context, or semantic similarity; list and inspect documents;
sync the local store from upstream; and optionally mirror it to Dropbox.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("grans version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "Emit machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolVar(&flags.utc, "utc", false, "Display timestamps in UTC instead of local time")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "Path to the archive database (default: platform data directory)")
	cmd.PersistentFlags().StringVar(&flags.token, "token", "", "Override the upstream API credential")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newWithCmd())
	cmd.AddCommand(newRecentCmd())
	cmd.AddCommand(newTodayCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newEmbedCmd())
	cmd.AddCommand(newDropboxCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and translates broken-pipe writes to stdout
// (the reader end of a pipe closing early, e.g. `grans list | head`) into a
// clean exit rather than a reported error.
func Execute() error {
	err := NewRootCmd().Execute()
	if isBrokenPipe(err) {
		return nil
	}
	return err
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}

// app bundles the shared runtime dependencies a subcommand needs: the
// opened store, loaded config, output writer, and date resolver. Built once
// per invocation by newApp and torn down by its Close.
type app struct {
	st      *store.Store
	cfg     *config.Config
	out     *output.Writer
	dates   *dateresolve.Resolver
	logDone func()
}

// newApp loads configuration, opens the archive store, and wires an
// output.Writer honoring --json/--no-color, per the persistent flags on cmd.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, grerr.ConfigError("failed to load configuration", err)
	}

	dbPath := flags.dbPath
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	if dbPath == "" {
		dbPath, err = platform.DefaultStorePath()
		if err != nil {
			return nil, grerr.ConfigError("failed to resolve default database path", err)
		}
	}
	if err := os.MkdirAll(parentDir(dbPath), 0o755); err != nil {
		return nil, grerr.StoreIOError("failed to create database directory", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	var logDone func()
	if flags.verbose {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err == nil {
			slog.SetDefault(logger)
			logDone = cleanup
		}
	}

	dates, err := dateresolve.New(cfg.Dates.Timezone, cfg.Dates.WeekStart)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var out *output.Writer
	if flags.jsonOutput {
		out = output.NewJSON(cmd.OutOrStdout())
	} else {
		out = output.New(cmd.OutOrStdout(), flags.noColor)
	}

	return &app{st: st, cfg: cfg, out: out, dates: dates, logDone: logDone}, nil
}

// Close releases the app's resources. Safe to call via defer.
func (a *app) Close() {
	if a.logDone != nil {
		a.logDone()
	}
	_ = a.st.Close()
}

func parentDir(path string) string {
	dir := path
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			dir = path[:i]
			break
		}
	}
	if dir == path {
		return "."
	}
	return dir
}

// runE wraps a subcommand body so infrastructure errors (cannot open the
// store, cannot load config) are reported uniformly, honoring --json.
func runE(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return reportErr(cmd, err)
		}
		defer a.Close()

		if err := fn(cmd, a, args); err != nil {
			return reportErr(cmd, err)
		}
		return nil
	}
}

// reportErr prints err on stderr (as JSON if --json is set) and returns a
// sentinel so cobra exits non-zero without re-printing usage.
func reportErr(cmd *cobra.Command, err error) error {
	if isBrokenPipe(err) {
		return nil
	}
	if flags.jsonOutput {
		if data, jerr := grerr.FormatJSON(err); jerr == nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), string(data))
			return errSilent
		}
	}
	_, _ = io.WriteString(cmd.ErrOrStderr(), grerr.FormatForCLI(err))
	return errSilent
}

// errSilent is returned from RunE bodies once the error has already been
// printed by reportErr, so cobra's own "Error: ..." line is never doubled.
var errSilent = errors.New("")
