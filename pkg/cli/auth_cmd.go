package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/app"
)

// statusProbeLimit caps concurrent CheckAuth probes for `auth status --all`.
const statusProbeLimit = 4

func newAuthCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage credential sessions",
	}

	cmd.AddCommand(newAuthLoginCmd(state))
	cmd.AddCommand(newAuthStatusCmd(state))
	cmd.AddCommand(newAuthLogoutCmd(state))
	return cmd
}

func newAuthLoginCmd(state *appState) *cobra.Command {
	var noInput bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Establish a credential session for the active profile",
		Long: `Acquire a token using the profile's auth flow. The device_code flow prints
a sign-in prompt; azure_cli and client_credentials complete silently when
their prerequisites are in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, rc, err := state.resolveProfile(cmd)
			if err != nil {
				return err
			}
			interactive := !noInput && term.IsTerminal(int(os.Stdin.Fd()))
			session, err := a.Services.Executor.Authenticate(cmd.Context(), rc.ProfileName, interactive)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]interface{}{
					"profile":   rc.ProfileName,
					"account":   session.Account.Label,
					"expiresOn": session.ExpiresOn.UTC().Format(time.RFC3339),
				})
			}
			label := session.Account.Label
			if label == "" {
				label = "unknown account"
			}
			fmt.Fprintf(os.Stdout, "Signed in to %q as %s (token expires %s)\n",
				rc.ProfileName, label, session.ExpiresOn.Local().Format("2006-01-02 15:04 MST"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noInput, "no-input", false, "Fail instead of prompting for device sign-in")
	return cmd
}

// authStatusRow is one profile's probe outcome for status output.
type authStatusRow struct {
	Profile  string `json:"profile"`
	AuthFlow string `json:"authFlow,omitempty"`
	SignedIn bool   `json:"signedIn"`
	Error    string `json:"error,omitempty"`
}

func newAuthStatusCmd(state *appState) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether a usable session exists, without prompting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}

			var rows []authStatusRow
			if all {
				names, err := a.Services.Config.ProfileNames()
				if err != nil {
					return err
				}
				rows = make([]authStatusRow, len(names))
				g, ctx := errgroup.WithContext(cmd.Context())
				g.SetLimit(statusProbeLimit)
				for i, name := range names {
					g.Go(func() error {
						rows[i] = probeAuth(ctx, a, name)
						return nil
					})
				}
				_ = g.Wait()
			} else {
				rows = []authStatusRow{probeAuth(cmd.Context(), a, state.cfg.Profile)}
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, rows)
			}
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				status := "signed out"
				switch {
				case row.SignedIn:
					status = "signed in"
				case row.Error != "":
					status = "error: " + row.Error
				}
				table = append(table, []string{row.Profile, row.AuthFlow, status})
			}
			printTable(os.Stdout, []string{"profile", "flow", "status"}, table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Probe every selectable profile in the workspace")
	return cmd
}

// probeAuth resolves one profile and silently checks its session. Failures
// land in the row instead of aborting the status listing.
func probeAuth(ctx context.Context, a *app.App, profileName string) authStatusRow {
	rc, err := a.Services.Config.ResolveProfile(profileName)
	if err != nil {
		return authStatusRow{Profile: profileName, Error: err.Error()}
	}
	ok, err := a.Services.Broker.CheckAuth(ctx, rc)
	row := authStatusRow{Profile: rc.ProfileName, AuthFlow: string(rc.AuthFlow), SignedIn: ok}
	if err != nil {
		row.Error = err.Error()
	}
	return row
}

func newAuthLogoutCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the active profile's cached credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, rc, err := state.resolveProfile(cmd)
			if err != nil {
				return err
			}
			if err := a.Services.Broker.SignOut(rc); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Signed out of %q\n", rc.ProfileName)
			return nil
		},
	}
}
