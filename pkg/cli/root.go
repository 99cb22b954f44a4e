// Package cli implements the bctb command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/app"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/config"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context so
// in-flight queries and scheduled sweeps shut down cleanly.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	state := &appState{}
	rootCmd := newRootCmd(state)
	err := rootCmd.ExecuteContext(ctx)
	state.close()
	if err != nil {
		// A rendered error envelope already reported itself; only the
		// exit code is left.
		if errors.Is(err, errQueryFailed) {
			return 1
		}
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			if category := domain.ErrorCategory(err); category != "" {
				errObj["category"] = category
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// appState carries the resolved runtime configuration and the lazily wired
// application across commands. Commands that never touch the workspace
// (version, completion) must not trigger app construction, so the data
// directory is only created once a command actually needs it.
type appState struct {
	cfg    *config.Config
	logger *slog.Logger
	app    *app.App
}

// App returns the wired application, constructing it on first use.
func (s *appState) App(ctx context.Context) (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	a, err := app.New(ctx, app.Deps{Cfg: s.cfg, Logger: s.logger})
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

// resolveProfile wires the app and resolves the active profile in one step
// for commands that operate on a single resolved profile.
func (s *appState) resolveProfile(cmd *cobra.Command) (*app.App, *domain.ResolvedConfig, error) {
	a, err := s.App(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	rc, err := a.Services.Config.ResolveProfile(s.cfg.Profile)
	if err != nil {
		return nil, nil, err
	}
	return a, rc, nil
}

func (s *appState) close() {
	if s.app != nil {
		_ = s.app.Close()
	}
}

func newRootCmd(state *appState) *cobra.Command {
	var (
		workspace string
		profile   string
		output    string
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:           "bctb",
		Short:         "Business Central telemetry from the command line",
		Long:          "Run KQL queries against Application Insights telemetry with profile-scoped configuration, credential brokering, and result caching.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load user config first so it can supply the workspace; the
			// config file is optional.
			user, err := LoadUserConfig()
			if err != nil {
				user = &UserConfig{}
			}

			// Apply precedence: flag > env > user config > default. The
			// workspace resolves first because the workspace .env file may
			// feed everything downstream of it.
			if !cmd.Flags().Changed("workspace") {
				if v := os.Getenv("BCTB_WORKSPACE"); v != "" {
					workspace = v
				} else if user.Workspace != "" {
					workspace = user.Workspace
				}
			}
			if err := config.LoadDotEnv(filepath.Join(workspace, ".env")); err != nil {
				return err
			}

			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			cfg.Workspace = workspace

			if cmd.Flags().Changed("profile") {
				cfg.Profile = profile
			} else if os.Getenv("BCTB_PROFILE") == "" && user.Profile != "" {
				cfg.Profile = user.Profile
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			} else if os.Getenv("BCTB_LOG_LEVEL") == "" && user.LogLevel != "" {
				cfg.LogLevel = user.LogLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = logFormat
			} else if os.Getenv("BCTB_LOG_FORMAT") == "" && user.LogFormat != "" {
				cfg.LogFormat = user.LogFormat
			}
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("BCTB_OUTPUT"); v != "" {
					output = v
				} else if user.Output != "" {
					output = user.Output
				}
			}
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			// Write the resolved format back so getOutputFormat sees
			// env and user-config values, not only explicit flags.
			_ = cmd.Root().PersistentFlags().Set("output", output)

			state.cfg = cfg
			state.logger = app.NewLogger(cfg)
			for _, warning := range cfg.Warnings {
				state.logger.Warn(warning)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Workspace directory containing "+config.DocumentName)
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Profile name (empty uses the document default)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(newProfileCmd(state))
	rootCmd.AddCommand(newQueryCmd(state))
	rootCmd.AddCommand(newAuthCmd(state))
	rootCmd.AddCommand(newCacheCmd(state))
	rootCmd.AddCommand(newHistoryCmd(state))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
