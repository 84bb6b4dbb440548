package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grans-cli/grans/internal/dropbox"
)

func newDropboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dropbox",
		Short: "Link, push, pull, and inspect a Dropbox-backed copy of the archive",
	}

	cmd.AddCommand(newDropboxInitCmd())
	cmd.AddCommand(newDropboxPushCmd())
	cmd.AddCommand(newDropboxPullCmd())
	cmd.AddCommand(newDropboxStatusCmd())
	cmd.AddCommand(newDropboxLogoutCmd())
	return cmd
}

func newDropboxInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Authorize this archive against a Dropbox account",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			syncer, err := dropbox.New(a.st, a.cfg.Dropbox)
			if err != nil {
				return err
			}

			authURL, pkce, err := syncer.BeginAuth()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Open this URL and authorize access:")
			fmt.Fprintln(w, authURL)
			fmt.Fprint(w, "\nPaste the authorization code: ")

			reader := bufio.NewReader(cmd.InOrStdin())
			line, _ := reader.ReadString('\n')
			code := strings.TrimSpace(line)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			if err := syncer.CompleteAuth(cmd.Context(), code, pkce); err != nil {
				return err
			}

			return a.out.Emit(map[string]string{"action": "dropbox_init", "status": "linked"}, func() {
				a.out.Success("Dropbox account linked")
			})
		}),
	}
}

func newDropboxPushCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload the local archive to Dropbox",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			syncer, err := dropbox.New(a.st, a.cfg.Dropbox)
			if err != nil {
				return err
			}
			result, err := syncer.Push(cmd.Context(), a.st.Path(), force)
			if err != nil {
				return err
			}
			return a.out.Emit(result, func() {
				a.out.Success(fmt.Sprintf("pushed %d bytes to %s", result.BytesUploaded, result.RemotePath))
			})
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite the remote copy even if it is newer")
	return cmd
}

func newDropboxPullCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the Dropbox-hosted archive over the local copy",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			syncer, err := dropbox.New(a.st, a.cfg.Dropbox)
			if err != nil {
				return err
			}
			dbPath := a.st.Path()
			if err := a.st.Close(); err != nil {
				return err
			}
			result, err := syncer.Pull(cmd.Context(), dbPath, force)
			if err != nil {
				return err
			}
			return a.out.Emit(result, func() {
				a.out.Success(fmt.Sprintf("pulled %d bytes", result.BytesDownloaded))
			})
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite the local copy even if it is newer")
	return cmd
}

func newDropboxStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Compare the local archive against the Dropbox-hosted copy",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			syncer, err := dropbox.New(a.st, a.cfg.Dropbox)
			if err != nil {
				return err
			}
			status, err := syncer.Status(cmd.Context(), a.st.Path())
			if err != nil {
				return err
			}
			return a.out.Emit(status, func() {
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Authenticated: %t\n", status.Authenticated)
				fmt.Fprintf(w, "Local:  exists=%t size=%d\n", status.LocalDB.Exists, status.LocalDB.SizeBytes)
				fmt.Fprintf(w, "Remote: exists=%t size=%d\n", status.RemoteDB.Exists, status.RemoteDB.SizeBytes)
				if status.LocalDB.Exists && status.RemoteDB.Exists &&
					status.LocalDB.ModifiedTime != nil && status.RemoteDB.ModifiedTime != nil &&
					status.LocalDB.ModifiedTime.After(*status.RemoteDB.ModifiedTime) {
					a.out.Warning("local copy is newer than remote; push to publish your changes")
				}
			})
		}),
	}
}

func newDropboxLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored Dropbox authorization",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			syncer, err := dropbox.New(a.st, a.cfg.Dropbox)
			if err != nil {
				return err
			}
			if err := syncer.Logout(); err != nil {
				return err
			}
			return a.out.Emit(map[string]string{"action": "dropbox_logout", "status": "ok"}, func() {
				a.out.Success("Dropbox authorization cleared")
			})
		}),
	}
}
