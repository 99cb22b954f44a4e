package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

// errQueryFailed signals that an error envelope was already rendered; only
// the nonzero exit code remains for Execute to apply.
var errQueryFailed = errors.New("query failed")

func newQueryCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run and manage KQL queries",
	}

	cmd.AddCommand(newQueryRunCmd(state))
	cmd.AddCommand(newQuerySaveCmd(state))
	cmd.AddCommand(newQueryListCmd(state))
	cmd.AddCommand(newQueryShowCmd(state))
	cmd.AddCommand(newQuerySearchCmd(state))
	return cmd
}

func newQueryRunCmd(state *appState) *cobra.Command {
	var (
		file string
		name string
	)

	cmd := &cobra.Command{
		Use:   "run [query text]",
		Short: "Execute a KQL query against the profile's telemetry",
		Long: `Execute a KQL query using the active profile's tenant, credentials, and
Application Insights application. Results are cached per profile according
to the profile's cache settings. Failures are reported with a remediation
category instead of a stack trace.`,
		Example: `  # Inline query text
  bctb query run "traces | where timestamp > ago(1h) | take 50"

  # From a file, against a specific profile, as JSON
  bctb query run --file slow-pages.kql --profile prod --output json

  # From a saved query or from stdin
  bctb query run --name slow-pages
  cat adhoc.kql | bctb query run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			text, err := readQueryText(cmd, state, args, file, name)
			if err != nil {
				return err
			}
			result := a.Services.Executor.Execute(cmd.Context(), state.cfg.Profile, text)
			return renderResult(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a .kql file")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Run a saved query by name")
	return cmd
}

// readQueryText picks the query source: positional text, --file, --name, or
// piped stdin, in that order of precedence. Supplying more than one source
// is an error.
func readQueryText(cmd *cobra.Command, state *appState, args []string, file, name string) (string, error) {
	sources := 0
	if len(args) == 1 {
		sources++
	}
	if file != "" {
		sources++
	}
	if name != "" {
		sources++
	}
	if sources > 1 {
		return "", fmt.Errorf("provide the query as an argument, --file, or --name, not several at once")
	}

	switch {
	case len(args) == 1:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file) //nolint:gosec // user-supplied path
		if err != nil {
			return "", fmt.Errorf("read query file: %w", err)
		}
		return string(data), nil
	case name != "":
		store, err := queriesStore(cmd, state)
		if err != nil {
			return "", err
		}
		return store.Load(name)
	}

	// No explicit source: accept piped stdin, but never block on a terminal.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no query given: pass query text, --file, --name, or pipe it on stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("stdin was empty: pass query text, --file, or --name")
	}
	return string(data), nil
}

// renderResult prints the result envelope. Error envelopes render with
// category and a remediation hint, and surface as a nonzero exit code.
func renderResult(cmd *cobra.Command, result *domain.QueryResult) error {
	if getOutputFormat(cmd) == "json" {
		if err := printJSON(os.Stdout, result); err != nil {
			return err
		}
		if result.IsError() {
			return errQueryFailed
		}
		return nil
	}

	if result.IsError() {
		fmt.Fprintf(os.Stderr, "Query failed (%s): %s\n", result.Category, result.Summary)
		if hint := remediation(result.Category); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		return errQueryFailed
	}

	columns := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		columns[i] = c.Name
	}
	rows := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = formatCell(cell)
		}
		rows[i] = cells
	}
	printTable(os.Stdout, columns, rows)

	footer := fmt.Sprintf("%d rows", result.RowCount)
	if result.Cached {
		footer += " (cached)"
	}
	fmt.Fprintln(os.Stderr, footer)
	return nil
}

// remediation maps an error category to a next step the caller can take.
func remediation(category string) string {
	switch category {
	case domain.CategoryConfig:
		return "inspect the profile with 'bctb profile resolve'"
	case domain.CategoryAuth:
		return "establish a session with 'bctb auth login'"
	case domain.CategoryBackend:
		return "check the query text and the profile's endpoint settings"
	case domain.CategoryCache:
		return "inspect the workspace cache with 'bctb cache stats'"
	}
	return ""
}

func newQuerySaveCmd(state *appState) *cobra.Command {
	var (
		file        string
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "save <name> [query text]",
		Short: "Save a reusable query to the workspace",
		Example: `  bctb query save slow-pages "pageViews | where duration > 5000" \
    --description "Pages slower than 5s" --tag perf --tag pages`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := queriesStore(cmd, state)
			if err != nil {
				return err
			}
			text, err := readQueryText(cmd, state, args[1:], file, "")
			if err != nil {
				return err
			}
			path, err := store.Save(args[0], text, domain.SavedQueryMeta{
				Description: description,
				Tags:        tags,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Saved query %q to %s\n", args[0], path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a .kql file")
	cmd.Flags().StringVarP(&description, "description", "d", "", "One-line description stored with the query")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag stored with the query (repeatable)")
	return cmd
}

func newQueryListCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := queriesStore(cmd, state)
			if err != nil {
				return err
			}
			infos, err := store.List()
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				type row struct {
					Name       string `json:"name"`
					Path       string `json:"path"`
					ModifiedAt string `json:"modifiedAt"`
				}
				list := make([]row, 0, len(infos))
				for _, info := range infos {
					list = append(list, row{info.Name, info.Path, info.ModifiedAt.UTC().Format(time.RFC3339)})
				}
				return printJSON(os.Stdout, list)
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{info.Name, info.ModifiedAt.Format("2006-01-02 15:04"), info.Path})
			}
			printTable(os.Stdout, []string{"name", "modified", "path"}, rows)
			return nil
		},
	}
}

func newQueryShowCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := queriesStore(cmd, state)
			if err != nil {
				return err
			}
			text, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]string{"name": args[0], "text": text})
			}
			fmt.Fprint(os.Stdout, text)
			return nil
		},
	}
}

func newQuerySearchCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>...",
		Short: "Search saved queries by keyword",
		Long:  "Search saved query names and bodies. All keywords must match (case-insensitive).",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := queriesStore(cmd, state)
			if err != nil {
				return err
			}
			matches, err := store.Search(args)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				type row struct {
					Name    string `json:"name"`
					Path    string `json:"path"`
					Snippet string `json:"snippet"`
				}
				list := make([]row, 0, len(matches))
				for _, m := range matches {
					list = append(list, row{m.Name, m.Path, m.Snippet})
				}
				return printJSON(os.Stdout, list)
			}
			rows := make([][]string, 0, len(matches))
			for _, m := range matches {
				rows = append(rows, []string{m.Name, m.Snippet})
			}
			printTable(os.Stdout, []string{"name", "snippet"}, rows)
			fmt.Fprintln(os.Stderr, strconv.Itoa(len(matches))+" matches")
			return nil
		},
	}
}

// queriesStore resolves the active profile and returns its saved-query
// store, honoring a profile queriesFolder override.
func queriesStore(cmd *cobra.Command, state *appState) (domain.SavedQueryStore, error) {
	a, err := state.App(cmd.Context())
	if err != nil {
		return nil, err
	}
	rc, err := a.Services.Config.ResolveProfile(state.cfg.Profile)
	if err != nil {
		// Saved queries should stay reachable even when no profile resolves
		// (fresh workspace, broken document); fall back to the default
		// folder in that case.
		return a.DefaultQueries(), nil
	}
	return a.QueriesFor(rc), nil
}
