package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

func newHistoryCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded query executions",
	}

	cmd.AddCommand(newHistoryListCmd(state))
	cmd.AddCommand(newHistoryPruneCmd(state))
	return cmd
}

func newHistoryListCmd(state *appState) *cobra.Command {
	var (
		limit       int
		kind        string
		allProfiles bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent query executions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			if a.Services.History == nil {
				return fmt.Errorf("query history is disabled for this workspace")
			}

			profileName := ""
			if !allProfiles {
				rc, err := a.Services.Config.ResolveProfile(state.cfg.Profile)
				if err != nil {
					return err
				}
				profileName = rc.ProfileName
			}

			entries, err := a.Services.History.List(cmd.Context(), domain.HistoryFilter{
				ProfileName: profileName,
				Kind:        domain.ResultKind(kind),
				Limit:       limit,
			})
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				type row struct {
					ID          string `json:"id"`
					Profile     string `json:"profile"`
					Fingerprint string `json:"fingerprint"`
					Query       string `json:"query"`
					Kind        string `json:"kind"`
					Category    string `json:"category,omitempty"`
					RowCount    int    `json:"rowCount"`
					Cached      bool   `json:"cached"`
					DurationMs  int64  `json:"durationMs"`
					StartedAt   string `json:"startedAt"`
				}
				list := make([]row, 0, len(entries))
				for _, e := range entries {
					list = append(list, row{
						ID:          e.ID,
						Profile:     e.ProfileName,
						Fingerprint: e.Fingerprint,
						Query:       e.QueryText,
						Kind:        string(e.Kind),
						Category:    e.Category,
						RowCount:    e.RowCount,
						Cached:      e.Cached,
						DurationMs:  e.DurationMs,
						StartedAt:   e.StartedAt.UTC().Format(time.RFC3339),
					})
				}
				return printJSON(os.Stdout, list)
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				cached := ""
				if e.Cached {
					cached = "yes"
				}
				rows = append(rows, []string{
					e.StartedAt.Local().Format("2006-01-02 15:04:05"),
					e.ProfileName,
					string(e.Kind),
					strconv.Itoa(e.RowCount),
					cached,
					strconv.FormatInt(e.DurationMs, 10),
					querySnippet(e.QueryText),
				})
			}
			printTable(os.Stdout, []string{"started", "profile", "kind", "rows", "cached", "ms", "query"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to list")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by result kind (table, empty, error)")
	cmd.Flags().BoolVar(&allProfiles, "all-profiles", false, "List executions across all profiles")
	return cmd
}

func newHistoryPruneCmd(state *appState) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history entries older than a retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			if a.Services.History == nil {
				return fmt.Errorf("query history is disabled for this workspace")
			}
			deleted, err := a.Services.History.Prune(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]interface{}{"deleted": deleted})
			}
			fmt.Fprintf(os.Stdout, "Pruned %d history entries older than %s\n", deleted, olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Retention window (entries started before now minus this are deleted)")
	return cmd
}

// querySnippet collapses a query to one short line for table display.
func querySnippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	const max = 60
	if len(collapsed) > max {
		return collapsed[:max-3] + "..."
	}
	return collapsed
}
