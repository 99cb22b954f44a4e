package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/service/cache"
)

func newCacheCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the query result cache",
	}

	cmd.AddCommand(newCacheStatsCmd(state))
	cmd.AddCommand(newCacheClearCmd(state))
	cmd.AddCommand(newCacheSweepCmd(state))
	return cmd
}

func newCacheStatsCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics for the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, rc, err := state.resolveProfile(cmd)
			if err != nil {
				return err
			}
			stats := a.Services.Caches.ForProfile(rc).Stats()

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]interface{}{
					"profile":    rc.ProfileName,
					"enabled":    rc.CacheEnabled,
					"ttlSeconds": rc.CacheTTLSeconds,
					"size":       stats.Size,
					"corrupt":    stats.Corrupt,
				})
			}
			printDetail(os.Stdout, [][2]string{
				{"profile", rc.ProfileName},
				{"enabled", strconv.FormatBool(rc.CacheEnabled)},
				{"ttl seconds", strconv.Itoa(rc.CacheTTLSeconds)},
				{"entries", strconv.Itoa(stats.Size)},
				{"corrupt", strconv.Itoa(stats.Corrupt)},
				{"cache root", state.cfg.CacheRoot()},
			})
			return nil
		},
	}
}

func newCacheClearCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached results for the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, rc, err := state.resolveProfile(cmd)
			if err != nil {
				return err
			}
			stats := a.Services.Caches.ForProfile(rc).Clear()

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]interface{}{
					"profile": rc.ProfileName,
					"deleted": stats.Deleted,
					"errors":  stats.Errors,
				})
			}
			fmt.Fprintf(os.Stdout, "Deleted %d cached results for %q", stats.Deleted, rc.ProfileName)
			if stats.Errors > 0 {
				fmt.Fprintf(os.Stdout, " (%d entries could not be removed)", stats.Errors)
			}
			fmt.Fprintln(os.Stdout)
			return nil
		},
	}
}

func newCacheSweepCmd(state *appState) *cobra.Command {
	var every string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cache entries across all profiles",
		Long: `Walk every profile's cache directory and delete entries past their TTL.
Reads already ignore expired entries; sweeping reclaims the disk they hold.
With --every, keep running and sweep on the given cron schedule.`,
		Example: `  bctb cache sweep
  bctb cache sweep --every "@hourly"
  bctb cache sweep --every "0 3 * * *"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sweeper := cache.NewSweeper(state.cfg.CacheRoot(), state.logger)

			stats := sweeper.SweepOnce()
			if getOutputFormat(cmd) == "json" && every == "" {
				return printJSON(os.Stdout, map[string]interface{}{
					"removed": stats.Removed,
					"errors":  stats.Errors,
				})
			}
			fmt.Fprintf(os.Stdout, "Removed %d expired entries", stats.Removed)
			if stats.Errors > 0 {
				fmt.Fprintf(os.Stdout, " (%d errors)", stats.Errors)
			}
			fmt.Fprintln(os.Stdout)

			if every == "" {
				return nil
			}
			if err := sweeper.Start(every); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Sweeping on schedule %q; press Ctrl-C to stop\n", every)
			<-cmd.Context().Done()
			sweeper.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&every, "every", "", "Cron schedule for repeated sweeps (e.g. @hourly)")
	return cmd
}
